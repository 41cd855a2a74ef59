package service

import (
	"context"
	"testing"
	"time"

	"labbook/internal/observability"
	"labbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordOperations(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := observability.Tracer
	observability.Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)).Tracer("labbook-test")
	t.Cleanup(func() { observability.Tracer = prev })
	return sr
}

func endedNames(sr *tracetest.SpanRecorder) []string {
	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func TestServiceOperationsAreTraced(t *testing.T) {
	setupRedis(t)
	sr := recordOperations(t)
	db := newTestDB(t)
	ctx := context.Background()

	alice := seedProfile(t, db, "alice")
	bob := seedProfile(t, db, "bob")
	post := seedPost(t, db, bob.ID, "thermal camera teardown", time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC))

	_, err := newFeedService(db).Page(ctx, alice.ID, 0)
	require.NoError(t, err)

	collabs := NewCollaboratorService(
		repository.NewCollaboratorRepository(db),
		repository.NewProfileRepository(db),
		nil,
	)
	_, err = collabs.Act(ctx, alice.ID, bob.ID, false)
	require.NoError(t, err)

	validations := NewValidationService(
		repository.NewValidationRepository(db),
		repository.NewPostRepository(db),
		nil,
	)
	_, err = validations.Toggle(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	_, err = validations.Toggle(ctx, alice.ID, post.ID+100)
	require.Error(t, err)

	assert.Equal(t, []string{"feed.page", "relation.transition", "validation.toggle", "validation.toggle"}, endedNames(sr))

	spans := sr.Ended()
	assert.Contains(t, spans[1].Attributes(), observability.AttrEffect.String("create"))
	assert.Contains(t, spans[1].Attributes(), attribute.Int64(string(observability.AttrPeerID), int64(bob.ID)))
	assert.Equal(t, codes.Unset, spans[2].Status().Code)
	assert.Equal(t, codes.Error, spans[3].Status().Code)
}
