package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstay/reservstack/internal/models"
)

func TestBuildSearchCriteriaSinceOnly(t *testing.T) {
	since := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)
	criteria := buildSearchCriteria(&models.TenantMailSettings{}, since)

	assert.Equal(t, since, criteria.Since)
	assert.Empty(t, criteria.Header)
	assert.Empty(t, criteria.Or)
	// Seen state must not restrict the search
	assert.Empty(t, criteria.WithoutFlags)
	assert.Empty(t, criteria.WithFlags)
}

func TestBuildSearchCriteriaSingleFilter(t *testing.T) {
	settings := &models.TenantMailSettings{
		SubjectFilters: []string{"nueva reserva"},
	}
	criteria := buildSearchCriteria(settings, time.Now())

	assert.Equal(t, "nueva reserva", criteria.Header.Get("Subject"))
	assert.Empty(t, criteria.Or)
}

func TestBuildSearchCriteriaTwoFilters(t *testing.T) {
	settings := &models.TenantMailSettings{
		SubjectFilters: []string{"nueva reserva", "new reservation"},
	}
	criteria := buildSearchCriteria(settings, time.Now())

	assert.Empty(t, criteria.Header)
	require.Len(t, criteria.Or, 1)

	left, right := criteria.Or[0][0], criteria.Or[0][1]
	assert.Equal(t, "nueva reserva", left.Header.Get("Subject"))
	assert.Equal(t, "new reservation", right.Header.Get("Subject"))
}

func TestBuildSearchCriteriaFoldsLongFilterList(t *testing.T) {
	settings := &models.TenantMailSettings{
		SubjectFilters: []string{"a", "b", "c", "d"},
	}
	criteria := buildSearchCriteria(settings, time.Now())

	// OR is binary, so four terms nest as OR(OR(OR(a, b), c), d)
	require.Len(t, criteria.Or, 1)
	outer := criteria.Or[0]
	assert.Equal(t, "d", outer[1].Header.Get("Subject"))

	require.Len(t, outer[0].Or, 1)
	middle := outer[0].Or[0]
	assert.Equal(t, "c", middle[1].Header.Get("Subject"))

	require.Len(t, middle[0].Or, 1)
	inner := middle[0].Or[0]
	assert.Equal(t, "a", inner[0].Header.Get("Subject"))
	assert.Equal(t, "b", inner[1].Header.Get("Subject"))
}

func TestBuildSearchCriteriaFromAndSubject(t *testing.T) {
	settings := &models.TenantMailSettings{
		FromFilters:    []string{"noreply@booking.com", "no-reply@hostelworld.com"},
		SubjectFilters: []string{"nueva reserva"},
	}
	criteria := buildSearchCriteria(settings, time.Now())

	assert.Equal(t, "nueva reserva", criteria.Header.Get("Subject"))
	require.Len(t, criteria.Or, 1)
	assert.Equal(t, "noreply@booking.com", criteria.Or[0][0].Header.Get("From"))
	assert.Equal(t, "no-reply@hostelworld.com", criteria.Or[0][1].Header.Get("From"))
}

func TestQualifyFolderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Processed", "INBOX.Processed"},
		{"INBOX.Processed", "INBOX.Processed"},
		{"INBOX", "INBOX"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, qualifyFolderName(tt.in))
	}
}
