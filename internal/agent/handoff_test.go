package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
)

func newTestController(sink *sinkFake) (*HandoffController, *store.Memory) {
	mem := store.NewMemory()
	return NewHandoffController(mem, sink, logger.NewNop()), mem
}

func TestStateAIActive(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()

	assert.Equal(t, StateAIActive, c.State(conv, testSettings()))
}

func TestStateSilentWithinWindow(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Handler = model.HandlerHuman
	handoffAt := time.Now().Add(-10 * time.Minute)
	conv.Orchestration.HandoffAt = &handoffAt

	settings := testSettings() // 30m window

	assert.Equal(t, StateHandedOffSilent, c.State(conv, settings))
	assert.True(t, c.IsSilenced(conv, settings))
}

func TestStateResumableAfterWindow(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Handler = model.HandlerHuman
	handoffAt := time.Now().Add(-31 * time.Minute)
	conv.Orchestration.HandoffAt = &handoffAt

	settings := testSettings()

	assert.Equal(t, StateHandedOffResumable, c.State(conv, settings))
	assert.False(t, c.IsSilenced(conv, settings))
}

func TestStateSilentWhenSilenceDisabled(t *testing.T) {
	// With the silence feature off a human-owned conversation never resumes.
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Handler = model.HandlerHuman

	settings := testSettings()
	settings.SilenceOnHandoff = false

	assert.Equal(t, StateHandedOffSilent, c.State(conv, settings))
	assert.False(t, c.IsSilenced(conv, settings))
}

func TestStateResumableWithoutTimestamp(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Handler = model.HandlerHuman
	conv.Orchestration.HandoffAt = nil

	assert.Equal(t, StateHandedOffResumable, c.State(conv, testSettings()))
}

func TestExpireSilenceResumesAgent(t *testing.T) {
	c, mem := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Handler = model.HandlerHuman
	handoffAt := time.Now().Add(-time.Hour)
	conv.Orchestration.HandoffAt = &handoffAt
	conv.Orchestration.HandoffReason = model.HandoffReasonCustomerRequest
	require.NoError(t, mem.Save(context.Background(), conv))

	require.NoError(t, c.ExpireSilenceIfDue(context.Background(), conv, testSettings()))

	assert.Equal(t, model.HandlerAI, conv.Handler)
	assert.Nil(t, conv.Orchestration.HandoffAt)
	assert.Empty(t, conv.Orchestration.HandoffReason)

	saved, err := mem.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HandlerAI, saved.Handler)
}

func TestExpireSilenceNoopWithinWindow(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Handler = model.HandlerHuman
	handoffAt := time.Now().Add(-time.Minute)
	conv.Orchestration.HandoffAt = &handoffAt

	require.NoError(t, c.ExpireSilenceIfDue(context.Background(), conv, testSettings()))
	assert.Equal(t, model.HandlerHuman, conv.Handler)
}

func TestTriggerHandoffPersistsBeforeEmit(t *testing.T) {
	sink := &sinkFake{}
	c, mem := newTestController(sink)
	conv := testConversation()
	require.NoError(t, mem.Save(context.Background(), conv))

	var handlerAtEmit model.Handler
	sink.onEmit = func(*model.HandoffEvent) {
		saved, err := mem.Get(context.Background(), conv.ID)
		require.NoError(t, err)
		handlerAtEmit = saved.Handler
	}

	settings := testSettings()
	settings.NotifyEmployeeIDs = []string{"emp-1"}
	require.NoError(t, c.TriggerHandoff(context.Background(), conv, settings, model.HandoffReasonCustomerRequest))

	// The human ownership must already be durable when the event goes out.
	assert.Equal(t, model.HandlerHuman, handlerAtEmit)

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, conv.ID, event.ConversationID)
	assert.Equal(t, model.HandoffReasonCustomerRequest, event.Reason)
	assert.Equal(t, []string{"emp-1"}, event.NotifyTargets.EmployeeIDs)

	assert.Equal(t, model.HandlerHuman, conv.Handler)
	assert.NotNil(t, conv.Orchestration.HandoffAt)
	assert.Zero(t, conv.Orchestration.FailedAttempts)
}

func TestTriggerHandoffSurvivesEmitFailure(t *testing.T) {
	sink := &sinkFake{err: errors.New("broker down")}
	c, mem := newTestController(sink)
	conv := testConversation()
	require.NoError(t, mem.Save(context.Background(), conv))

	// Emit failures are logged, not surfaced: the handoff already stuck.
	require.NoError(t, c.TriggerHandoff(context.Background(), conv, testSettings(), model.HandoffReasonAIError))

	saved, err := mem.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HandlerHuman, saved.Handler)
}

func TestRecordOutcomeCountsFailures(t *testing.T) {
	c, mem := newTestController(&sinkFake{})
	conv := testConversation()
	require.NoError(t, mem.Save(context.Background(), conv))

	require.NoError(t, c.RecordOutcome(context.Background(), conv, 0.2))
	require.NoError(t, c.RecordOutcome(context.Background(), conv, 0.49))
	assert.Equal(t, 2, conv.Orchestration.FailedAttempts)

	saved, err := mem.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Orchestration.FailedAttempts)
}

func TestRecordOutcomeDeadZoneChangesNothing(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Orchestration.FailedAttempts = 2

	require.NoError(t, c.RecordOutcome(context.Background(), conv, 0.5))
	require.NoError(t, c.RecordOutcome(context.Background(), conv, 0.69))
	assert.Equal(t, 2, conv.Orchestration.FailedAttempts)
}

func TestRecordOutcomeResetsOnSuccess(t *testing.T) {
	c, mem := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Orchestration.FailedAttempts = 2
	require.NoError(t, mem.Save(context.Background(), conv))

	require.NoError(t, c.RecordOutcome(context.Background(), conv, 0.7))
	assert.Zero(t, conv.Orchestration.FailedAttempts)

	// Already at zero: no redundant save, still zero.
	require.NoError(t, c.RecordOutcome(context.Background(), conv, 0.9))
	assert.Zero(t, conv.Orchestration.FailedAttempts)
}

func TestCheckDirectHandoffKeywords(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	settings := testSettings()

	cases := []string{
		"أريد موظف الآن من فضلك",
		"ممكن كلمني موظف؟",
		"I want to talk to a HUMAN AGENT",
		"can I speak to someone about my order",
	}
	for _, msg := range cases {
		ok, reason := c.CheckDirectHandoff(msg, conv, settings)
		assert.True(t, ok, "message %q should trigger a handoff", msg)
		assert.Equal(t, model.HandoffReasonCustomerRequest, reason)
	}

	ok, _ := c.CheckDirectHandoff("متى يصل طلبي؟", conv, settings)
	assert.False(t, ok)
}

func TestCheckDirectHandoffTenantKeywords(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	settings := testSettings()
	settings.HandoffKeywords = []string{"شكوى عاجلة"}

	ok, reason := c.CheckDirectHandoff("عندي شكوى عاجلة", conv, settings)
	assert.True(t, ok)
	assert.Equal(t, model.HandoffReasonCustomerRequest, reason)
}

func TestCheckDirectHandoffMaxFailures(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Orchestration.FailedAttempts = 3

	settings := testSettings() // AutoHandoff, threshold 3
	ok, reason := c.CheckDirectHandoff("متى يصل طلبي؟", conv, settings)
	assert.True(t, ok)
	assert.Equal(t, model.HandoffReasonMaxFailures, reason)

	settings.AutoHandoff = false
	ok, _ = c.CheckDirectHandoff("متى يصل طلبي؟", conv, settings)
	assert.False(t, ok)
}

func TestCheckDirectHandoffThresholdFloor(t *testing.T) {
	c, _ := newTestController(&sinkFake{})
	conv := testConversation()
	conv.Orchestration.FailedAttempts = 1

	settings := testSettings()
	settings.HandoffAfterFailures = 0 // misconfigured, floor is 1

	ok, reason := c.CheckDirectHandoff("hello there", conv, settings)
	assert.True(t, ok)
	assert.Equal(t, model.HandoffReasonMaxFailures, reason)
}
