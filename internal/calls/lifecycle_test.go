package calls

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"signaling-service/internal/models"
)

func tm(sec int) *time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
	return &t
}

func TestValidResponse(t *testing.T) {
	assert.True(t, ValidResponse(models.CallStatusAccepted))
	assert.True(t, ValidResponse(models.CallStatusDeclined))
	assert.True(t, ValidResponse(models.CallStatusMissed))
	assert.False(t, ValidResponse(models.CallStatusPending))
	assert.False(t, ValidResponse("hangup"))
	assert.False(t, ValidResponse(""))
}

func TestAllResponded(t *testing.T) {
	assert.False(t, AllResponded(nil))
	assert.False(t, AllResponded([]models.CallParticipant{
		{UserID: 1, Status: models.CallStatusAccepted},
		{UserID: 2, Status: models.CallStatusPending},
	}))
	assert.True(t, AllResponded([]models.CallParticipant{
		{UserID: 1, Status: models.CallStatusAccepted},
		{UserID: 2, Status: models.CallStatusDeclined},
		{UserID: 3, Status: models.CallStatusMissed},
	}))
}

func TestDurationNobodyJoined(t *testing.T) {
	_, ok := Duration([]models.CallParticipant{
		{UserID: 1, Status: models.CallStatusAccepted},
		{UserID: 2, Status: models.CallStatusDeclined, LeftAt: tm(3)},
	}, *tm(10))
	assert.False(t, ok)
}

func TestDurationSingleJoined(t *testing.T) {
	d, ok := Duration([]models.CallParticipant{
		{UserID: 1, Status: models.CallStatusAccepted, JoinedAt: tm(0), LeftAt: tm(42)},
	}, *tm(60))
	assert.True(t, ok)
	assert.Equal(t, int64(42), d)
}

func TestDurationNeverLeftUsesNow(t *testing.T) {
	d, ok := Duration([]models.CallParticipant{
		{UserID: 1, Status: models.CallStatusAccepted, JoinedAt: tm(5)},
	}, *tm(35))
	assert.True(t, ok)
	assert.Equal(t, int64(30), d)
}

// A group call where only one invitee joins: the decliners contribute
// nothing, and the span is the joiner's interval alone.
func TestDurationGroupOnlyJoinedCount(t *testing.T) {
	d, ok := Duration([]models.CallParticipant{
		{UserID: 1, Status: models.CallStatusAccepted}, // initiator, never joined
		{UserID: 2, Status: models.CallStatusAccepted, JoinedAt: tm(10), LeftAt: tm(70)},
		{UserID: 3, Status: models.CallStatusDeclined, LeftAt: tm(2)},
		{UserID: 4, Status: models.CallStatusMissed, LeftAt: tm(90)},
	}, *tm(100))
	assert.True(t, ok)
	assert.Equal(t, int64(60), d)
}

func TestDurationSpansEarliestJoinToLatestLeave(t *testing.T) {
	d, ok := Duration([]models.CallParticipant{
		{UserID: 1, Status: models.CallStatusAccepted, JoinedAt: tm(0), LeftAt: tm(30)},
		{UserID: 2, Status: models.CallStatusAccepted, JoinedAt: tm(12), LeftAt: tm(95)},
	}, *tm(120))
	assert.True(t, ok)
	assert.Equal(t, int64(95), d)
}

func TestDurationRoundsSubsecond(t *testing.T) {
	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	left := joined.Add(9*time.Second + 700*time.Millisecond)
	d, ok := Duration([]models.CallParticipant{
		{UserID: 1, Status: models.CallStatusAccepted, JoinedAt: &joined, LeftAt: &left},
	}, left)
	assert.True(t, ok)
	assert.Equal(t, int64(10), d)
}
