package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/ssedata"
	"github.com/polizaflow/agency-backend/internal/types"
)

func newLeadFixture(t *testing.T) (LeadService, *gorm.DB) {
	t.Helper()
	log := testLogger(t)
	db := newTestDB(t)
	svc := NewLeadService(
		log,
		db,
		repos.NewLeadRepo(db, log),
		repos.NewAgentRepo(db, log),
		sse.NewSSEHub(log),
		nil,
	)
	return svc, db
}

func TestCapturePublicLead_BySlug(t *testing.T) {
	svc, db := newLeadFixture(t)
	agent := seedAgent(t, db, "ana-garcia")
	ctx := context.Background()

	lead, err := svc.CapturePublicLead(ctx, "ana-garcia", LeadInput{
		FullName: "  Juan Perez ",
		Email:    " JUAN@EXAMPLE.COM ",
		Message:  "quiero un seguro de vida",
	})
	require.NoError(t, err)

	if lead.AgentID != agent.ID {
		t.Fatalf("lead should belong to the slug owner")
	}
	if lead.Status != types.LeadStatusNuevo {
		t.Fatalf("captured lead should start nuevo, got %s", lead.Status)
	}
	if lead.Source != "public_profile" {
		t.Fatalf("source should be public_profile, got %s", lead.Source)
	}
	if lead.FullName != "Juan Perez" {
		t.Fatalf("name should be trimmed, got %q", lead.FullName)
	}
}

func TestCapturePublicLead_Validation(t *testing.T) {
	svc, db := newLeadFixture(t)
	seedAgent(t, db, "ana-garcia")
	ctx := context.Background()

	_, err := svc.CapturePublicLead(ctx, "ana-garcia", LeadInput{Email: "x@example.com"})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("missing name should be a validation error, got %v", err)
	}

	_, err = svc.CapturePublicLead(ctx, "ana-garcia", LeadInput{FullName: "Juan"})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("missing contact info should be a validation error, got %v", err)
	}

	_, err = svc.CapturePublicLead(ctx, "no-such-slug", LeadInput{FullName: "Juan", Phone: "+34600"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown slug should be not found, got %v", err)
	}
}

func TestCapturePublicLead_EventDelivery(t *testing.T) {
	log := testLogger(t)
	db := newTestDB(t)
	hub := sse.NewSSEHub(log)
	svc := NewLeadService(log, db, repos.NewLeadRepo(db, log), repos.NewAgentRepo(db, log), hub, nil)
	agent := seedAgent(t, db, "ana-garcia")

	client := hub.NewSSEClient(agent.ID)
	hub.AddChannel(client, sse.AgentChannel(agent.ID))

	// no request buffer installed, the event goes straight to the hub
	_, err := svc.CapturePublicLead(context.Background(), "ana-garcia", LeadInput{FullName: "Juan", Phone: "+34600"})
	require.NoError(t, err)
	select {
	case msg := <-client.Outbound:
		require.Equal(t, sse.SSEEventLeadCreated, msg.Event)
	default:
		t.Fatalf("lead event should reach the hub immediately")
	}

	// a buffered request holds the event until the middleware flushes it
	ctx := ssedata.WithSSEData(context.Background())
	_, err = svc.CapturePublicLead(ctx, "ana-garcia", LeadInput{FullName: "Rosa", Phone: "+34601"})
	require.NoError(t, err)
	select {
	case msg := <-client.Outbound:
		t.Fatalf("buffered event must not publish mid-request, got %s", msg.Event)
	default:
	}
	ssd := ssedata.GetSSEData(ctx)
	require.NotNil(t, ssd)
	require.Len(t, ssd.Messages, 1)
	require.Equal(t, sse.SSEEventLeadCreated, ssd.Messages[0].Event)
	require.Equal(t, sse.AgentChannel(agent.ID), ssd.Messages[0].Channel)
}

func TestMoveLead_EnforcesTransitions(t *testing.T) {
	svc, db := newLeadFixture(t)
	agent := seedAgent(t, db, "ana-garcia")
	rd := rdFor(agent)
	ctx := context.Background()

	lead, err := svc.CapturePublicLead(ctx, "ana-garcia", LeadInput{FullName: "Juan", Phone: "+34600"})
	require.NoError(t, err)

	// nuevo cannot jump straight to ganado
	_, err = svc.MoveLead(ctx, rd, lead.ID, types.LeadStatusGanado)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("skipping stages should conflict, got %v", err)
	}

	for _, next := range []types.LeadStatus{types.LeadStatusContactado, types.LeadStatusEnNegociacion, types.LeadStatusGanado} {
		lead, err = svc.MoveLead(ctx, rd, lead.ID, next)
		require.NoError(t, err, "move to %s", next)
		require.Equal(t, next, lead.Status)
	}

	// ganado is terminal
	_, err = svc.MoveLead(ctx, rd, lead.ID, types.LeadStatusPerdido)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("moving a won lead should conflict, got %v", err)
	}
}

func TestMoveLead_OwnershipAndNotes(t *testing.T) {
	svc, db := newLeadFixture(t)
	owner := seedAgent(t, db, "ana-garcia")
	intruder := seedAgent(t, db, "eva")
	ctx := context.Background()

	lead, err := svc.CapturePublicLead(ctx, "ana-garcia", LeadInput{FullName: "Juan", Phone: "+34600"})
	require.NoError(t, err)

	_, err = svc.MoveLead(ctx, rdFor(intruder), lead.ID, types.LeadStatusContactado)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign move should be forbidden, got %v", err)
	}

	updated, err := svc.UpdateNotes(ctx, rdFor(owner), lead.ID, "llamar el lunes")
	require.NoError(t, err)
	require.Equal(t, "llamar el lunes", updated.Notes)
}

func TestListLeads_StatusFilter(t *testing.T) {
	svc, db := newLeadFixture(t)
	agent := seedAgent(t, db, "ana-garcia")
	rd := rdFor(agent)
	ctx := context.Background()

	a, err := svc.CapturePublicLead(ctx, "ana-garcia", LeadInput{FullName: "Juan", Phone: "+34600"})
	require.NoError(t, err)
	_, err = svc.CapturePublicLead(ctx, "ana-garcia", LeadInput{FullName: "Rosa", Phone: "+34601"})
	require.NoError(t, err)
	_, err = svc.MoveLead(ctx, rd, a.ID, types.LeadStatusContactado)
	require.NoError(t, err)

	contacted, err := svc.ListLeads(ctx, rd, types.LeadStatusContactado)
	require.NoError(t, err)
	require.Len(t, contacted, 1)

	all, err := svc.ListLeads(ctx, rd, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = svc.ListLeads(ctx, rd, types.LeadStatus("bogus"))
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("unknown status filter should be a validation error, got %v", err)
	}
}
