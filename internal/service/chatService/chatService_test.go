package chatService

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type chatbotMock struct {
	mock.Mock
}

func (m *chatbotMock) Ask(ctx context.Context, identity model.Identity, message string) (model.ChatReply, error) {
	args := m.Called(ctx, identity, message)
	return args.Get(0).(model.ChatReply), args.Error(1)
}

var alice = model.Identity{Username: "alice", Email: "alice@example.com"}

func TestAsk(t *testing.T) {
	bot := &chatbotMock{}
	bot.On("Ask", mock.Anything, alice, "hello").Return(model.ChatReply{Reply: "hi"}, nil)

	reply, err := New(bot).Ask(context.Background(), alice, "  hello ")

	require.NoError(t, err)
	assert.Equal(t, "hi", reply.Reply)
}

func TestAsk_Rejects(t *testing.T) {
	s := New(&chatbotMock{})

	_, err := s.Ask(context.Background(), model.Identity{}, "hello")
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	_, err = s.Ask(context.Background(), alice, "   ")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = s.Ask(context.Background(), alice, strings.Repeat("a", maxMessageLen+1))
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestAsk_ChatbotError(t *testing.T) {
	bot := &chatbotMock{}
	bot.On("Ask", mock.Anything, alice, "hello").Return(model.ChatReply{}, errors.New("timeout"))

	_, err := New(bot).Ask(context.Background(), alice, "hello")

	assert.Error(t, err)
}
