package kafka

import (
	"context"
	"errors"
	"testing"

	"ReviewQA/internal/modules/qa/infrastructure/mq"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGroupSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeGroupSession) Claims() map[string][]int32 { return nil }
func (s *fakeGroupSession) MemberID() string           { return "member-test" }
func (s *fakeGroupSession) GenerationID() int32        { return 1 }
func (s *fakeGroupSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {
	s.marked = append(s.marked, offset)
}
func (s *fakeGroupSession) Commit() {}
func (s *fakeGroupSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {
}
func (s *fakeGroupSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.marked = append(s.marked, msg.Offset)
}
func (s *fakeGroupSession) Context() context.Context { return s.ctx }

type fakeGroupClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeGroupClaim) Topic() string                            { return "qa.process_query" }
func (c *fakeGroupClaim) Partition() int32                         { return 0 }
func (c *fakeGroupClaim) InitialOffset() int64                     { return 0 }
func (c *fakeGroupClaim) HighWaterMarkOffset() int64               { return 2 }
func (c *fakeGroupClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type offsetHandler struct {
	failAt  map[int64]error
	handled []int64
}

func (h *offsetHandler) Handle(ctx context.Context, msg mq.Message) error {
	offset := int64(len(h.handled))
	h.handled = append(h.handled, offset)
	return h.failAt[offset]
}

func claimWith(offsets ...int64) *fakeGroupClaim {
	ch := make(chan *sarama.ConsumerMessage, len(offsets))
	for _, o := range offsets {
		ch <- &sarama.ConsumerMessage{
			Topic:  "qa.process_query",
			Offset: o,
			Value:  []byte(`{}`),
		}
	}
	close(ch)
	return &fakeGroupClaim{messages: ch}
}

func TestConsumeClaimMarksEachAckedMessage(t *testing.T) {
	sess := &fakeGroupSession{ctx: context.Background()}
	h := &consumerGroupHandler{h: &offsetHandler{}}

	err := h.ConsumeClaim(sess, claimWith(0, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, sess.marked)
}

func TestConsumeClaimStopsAtFailedDelivery(t *testing.T) {
	sess := &fakeGroupSession{ctx: context.Background()}
	handleErr := errors.New("mysql is down")
	worker := &offsetHandler{failAt: map[int64]error{1: handleErr}}
	h := &consumerGroupHandler{h: worker}

	err := h.ConsumeClaim(sess, claimWith(0, 1, 2))
	require.ErrorIs(t, err, handleErr)

	// Only the delivery before the failure is marked; committing anything at
	// or past the failed offset would stop the broker from redelivering it.
	assert.Equal(t, []int64{0}, sess.marked)
	assert.Equal(t, []int64{0, 1}, worker.handled)
}
