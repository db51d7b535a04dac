package repositories

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signaling-service/internal/db"
	"signaling-service/internal/models"
)

func TestPairKeySymmetric(t *testing.T) {
	assert.Equal(t, pairKey(1, 2), pairKey(2, 1))
	assert.Equal(t, "1:2", pairKey(2, 1))
	assert.Equal(t, "7:7000000000", pairKey(7000000000, 7))
}

// testDB connects to the database named by TEST_DB_DSN and runs the
// migrations. Integration tests are skipped when it is unset.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	database, err := db.Connect(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

// freshUserID hands out ids that cannot collide with rows left behind
// by earlier runs against the same database.
var userIDCounter int64

func freshUserID() int64 {
	userIDCounter++
	return time.Now().UnixNano() + userIDCounter
}

func TestFindOrCreateIndividualConcurrent(t *testing.T) {
	repo := NewChatRepo(testDB(t))
	userA, userB := freshUserID(), freshUserID()

	const callers = 8
	ids := make([]int64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the callers start from each end of the pair.
			a, b := userA, userB
			if i%2 == 1 {
				a, b = b, a
			}
			chat, err := repo.FindOrCreateIndividual(context.Background(), a, b)
			ids[i], errs[i] = chat.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "caller %d got a different chat", i)
	}

	chat, err := repo.GetChat(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.ChatTypeIndividual, chat.Type)
	assert.Len(t, chat.Participants, 2)
}

func TestConcurrentAppendsAllStored(t *testing.T) {
	database := testDB(t)
	chatRepo := NewChatRepo(database)
	messageRepo := NewMessageRepo(database)

	chat, err := chatRepo.FindOrCreateIndividual(context.Background(), freshUserID(), freshUserID())
	require.NoError(t, err)
	sender := chat.Participants[0].UserID

	const senders = 20
	var wg sync.WaitGroup
	errs := make([]error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = messageRepo.Append(context.Background(), chat.ID, sender,
				fmt.Sprintf("message %d", i), models.ContentTypeText, "")
		}(i)
	}
	wg.Wait()
	for i := 0; i < senders; i++ {
		require.NoError(t, errs[i])
	}

	msgs, err := messageRepo.ListPage(context.Background(), chat.ID, 1, senders+10)
	require.NoError(t, err)
	require.Len(t, msgs, senders, "every concurrent append must be stored")
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID, "pages must come back in append order")
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	database := testDB(t)
	chatRepo := NewChatRepo(database)
	messageRepo := NewMessageRepo(database)

	chat, err := chatRepo.FindOrCreateIndividual(context.Background(), freshUserID(), freshUserID())
	require.NoError(t, err)
	sender, reader := chat.Participants[0].UserID, chat.Participants[1].UserID

	var msgIDs []int64
	for i := 0; i < 3; i++ {
		msg, err := messageRepo.Append(context.Background(), chat.ID, sender,
			fmt.Sprintf("m%d", i), models.ContentTypeText, "")
		require.NoError(t, err)
		msgIDs = append(msgIDs, msg.ID)
	}

	marked, err := messageRepo.MarkRead(context.Background(), chat.ID, reader, msgIDs)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)

	marked, err = messageRepo.MarkRead(context.Background(), chat.ID, reader, msgIDs)
	require.NoError(t, err)
	assert.Zero(t, marked, "re-reading must not create new receipts")

	msgs, err := messageRepo.ListPage(context.Background(), chat.ID, 1, 10)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.Len(t, m.ReadBy, 1, "message %d", m.ID)
	}
}

func TestCreateCallSoleParticipantFinalizes(t *testing.T) {
	database := testDB(t)
	chatRepo := NewChatRepo(database)
	callRepo := NewCallRepo(database)

	creator := freshUserID()
	chat, err := chatRepo.CreateGroup(context.Background(), creator, "just me", nil)
	require.NoError(t, err)

	call, err := callRepo.Create(context.Background(), chat.ID, creator, models.CallTypeAudio)
	require.NoError(t, err)

	// Nobody is pending from the start, so no response will ever arrive
	// to finalize the call; creation has to do it.
	assert.True(t, call.Ended())
	assert.Nil(t, call.Duration)
	require.Len(t, call.Participants, 1)
	assert.Equal(t, models.CallStatusAccepted, call.Participants[0].Status)
}
