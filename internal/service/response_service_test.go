package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusvoice/complaint-service/internal/domain"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

type workflow struct {
	*harness
	student   *domain.User
	gm        *domain.User
	dept      *domain.Department
	dm        *domain.User
	complaint *domain.Complaint
}

func newWorkflow(t *testing.T) *workflow {
	t.Helper()
	h := newHarness(t)
	w := &workflow{harness: h}
	w.student = h.student(t, "alice")
	w.gm = h.generalManager(t)
	w.dept = h.department(t, "Facilities")
	w.dm = h.departmentManager(t, "fac", w.dept)
	w.complaint = h.submit(t, w.student)
	_, err := h.complaints.AssignDepartment(context.Background(), w.gm, w.complaint.ID, w.dept.ID)
	require.NoError(t, err)
	return w
}

func (w *workflow) responseCount(t *testing.T) int {
	t.Helper()
	responses, err := w.store.Responses().ListByComplaint(context.Background(), w.complaint.ID, false)
	require.NoError(t, err)
	return len(responses)
}

func TestFileResponseResolvesComplaint(t *testing.T) {
	w := newWorkflow(t)

	result, err := w.responses.FileResponse(context.Background(), w.dm, w.complaint.ID, "  Fixed the projector  ")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusResolved, result.Complaint.Status)
	assert.False(t, result.Response.VisibleToStudent)
	assert.Nil(t, result.Response.PublishedAt)
	assert.Equal(t, "Fixed the projector", result.Response.Message)
	require.NotNil(t, result.Response.SenderID)
	assert.Equal(t, w.dm.ID, *result.Response.SenderID)
	assert.Equal(t, 1, w.responseCount(t))
	assert.Len(t, w.notifier.to("gm@campus.test"), 1)

	stored, err := w.store.Complaints().GetByID(context.Background(), w.complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusResolved, stored.Status)
}

func TestFileResponseOnResolvedComplaintKeepsStatus(t *testing.T) {
	w := newWorkflow(t)
	_, err := w.responses.FileResponse(context.Background(), w.dm, w.complaint.ID, "first")
	require.NoError(t, err)

	result, err := w.responses.FileResponse(context.Background(), w.dm, w.complaint.ID, "follow up")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusResolved, result.Complaint.Status)
	assert.Equal(t, 2, w.responseCount(t))
}

func TestFileResponseRejectsOtherDepartment(t *testing.T) {
	w := newWorkflow(t)
	otherDM := w.departmentManager(t, "it", w.department(t, "IT"))

	_, err := w.responses.FileResponse(context.Background(), otherDM, w.complaint.ID, "not mine")
	requireCode(t, err, apperrors.CodeForbidden)

	stored, err := w.store.Complaints().GetByID(context.Background(), w.complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusInReview, stored.Status)
	assert.Zero(t, w.responseCount(t))
}

func TestFileResponseRejectsOtherRolesAndBadInput(t *testing.T) {
	w := newWorkflow(t)

	for _, actor := range []*domain.User{w.student, w.gm} {
		_, err := w.responses.FileResponse(context.Background(), actor, w.complaint.ID, "hello")
		requireCode(t, err, apperrors.CodeForbidden)
	}
	_, err := w.responses.FileResponse(context.Background(), w.dm, w.complaint.ID, "   ")
	requireCode(t, err, apperrors.CodeValidation)
	_, err = w.responses.FileResponse(context.Background(), w.dm, "missing", "hello")
	requireCode(t, err, apperrors.CodeNotFound)
	assert.Zero(t, w.responseCount(t))
}

func TestFileResponseOnUnassignedComplaintIsForbidden(t *testing.T) {
	w := newWorkflow(t)
	pending := w.submit(t, w.student)

	_, err := w.responses.FileResponse(context.Background(), w.dm, pending.ID, "hello")
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestSetResponseVisibility(t *testing.T) {
	w := newWorkflow(t)
	filed, err := w.responses.FileResponse(context.Background(), w.dm, w.complaint.ID, "Fixed")
	require.NoError(t, err)

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	w.responses.now = func() time.Time { return first }

	result, err := w.responses.SetResponseVisibility(context.Background(), w.gm, filed.Response.ID, true)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, result.Response.VisibleToStudent)
	require.NotNil(t, result.Response.PublishedAt)
	assert.Equal(t, first, *result.Response.PublishedAt)
	require.NotNil(t, result.Notification)
	assert.True(t, result.Notification.Delivered)
	assert.Len(t, w.notifier.to("alice@campus.test"), 2, "receipt and publication")

	w.responses.now = func() time.Time { return first.Add(time.Hour) }
	result, err = w.responses.SetResponseVisibility(context.Background(), w.gm, filed.Response.ID, true)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Nil(t, result.Notification)
	assert.Equal(t, first, *result.Response.PublishedAt)

	result, err = w.responses.SetResponseVisibility(context.Background(), w.gm, filed.Response.ID, false)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.False(t, result.Response.VisibleToStudent)
	assert.Nil(t, result.Response.PublishedAt)

	stored, err := w.store.Responses().GetByID(context.Background(), filed.Response.ID)
	require.NoError(t, err)
	assert.False(t, stored.VisibleToStudent)
	assert.Nil(t, stored.PublishedAt)
	assert.Len(t, w.notifier.to("alice@campus.test"), 2, "hiding sends nothing")
}

func TestSetResponseVisibilityRequiresGeneralManager(t *testing.T) {
	w := newWorkflow(t)
	filed, err := w.responses.FileResponse(context.Background(), w.dm, w.complaint.ID, "Fixed")
	require.NoError(t, err)

	for _, actor := range []*domain.User{w.student, w.dm} {
		_, err := w.responses.SetResponseVisibility(context.Background(), actor, filed.Response.ID, true)
		requireCode(t, err, apperrors.CodeForbidden)
	}
	stored, err := w.store.Responses().GetByID(context.Background(), filed.Response.ID)
	require.NoError(t, err)
	assert.False(t, stored.VisibleToStudent)

	_, err = w.responses.SetResponseVisibility(context.Background(), w.gm, "missing", true)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestListResponsesFiltersByVisibility(t *testing.T) {
	w := newWorkflow(t)
	first, err := w.responses.FileResponse(context.Background(), w.dm, w.complaint.ID, "one")
	require.NoError(t, err)
	_, err = w.responses.FileResponse(context.Background(), w.dm, w.complaint.ID, "two")
	require.NoError(t, err)
	_, err = w.responses.SetResponseVisibility(context.Background(), w.gm, first.Response.ID, true)
	require.NoError(t, err)

	hidden := false
	list, err := w.responses.ListResponses(context.Background(), w.gm, ResponseQuery{Visible: &hidden})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "two", list[0].Message)

	all, err := w.responses.ListResponses(context.Background(), w.gm, ResponseQuery{ComplaintID: &w.complaint.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = w.responses.ListResponses(context.Background(), w.dm, ResponseQuery{})
	requireCode(t, err, apperrors.CodeForbidden)
}

