package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokesh75way/confirmed-add-in/models"
)

func TestAggregatePrecedence(t *testing.T) {
	existing := []models.Contact{{FirstName: "Ann", LastName: "Lee", Source: models.SourceExternal}}
	meeting := []models.Contact{{FirstName: "ann", LastName: "LEE", Source: models.SourceMeeting}}
	crm := []models.Contact{{FirstName: "Ann", LastName: "Lee", Source: models.SourceSalesforceContact}}

	out := Aggregate(existing, meeting, crm)

	require.Len(t, out, 1)
	assert.Equal(t, models.SourceExternal, out[0].Source)
}

func TestAggregateExistingFieldsWin(t *testing.T) {
	// same identity key, different raw phone and email text
	existing := []models.Contact{{FirstName: "Ann", LastName: "Lee", Email: "a@x.com", Phone: " 555 ", Source: models.SourceExternal}}
	meeting := []models.Contact{{ID: "m", FirstName: "Ann", LastName: "Lee", Email: "A@X.com", Phone: "555", Source: models.SourceMeeting}}
	require.Equal(t, BuildKey(existing[0]), BuildKey(meeting[0]))

	out := Aggregate(existing, meeting, nil)

	require.Len(t, out, 1)
	assert.Equal(t, " 555 ", out[0].Phone)
	assert.Equal(t, "a@x.com", out[0].Email)
	assert.Empty(t, out[0].ID)
	assert.Equal(t, models.SourceExternal, out[0].Source)
}

func TestAggregateDifferentPhonesAreDistinct(t *testing.T) {
	existing := []models.Contact{{FirstName: "Ann", LastName: "Lee", Phone: "1"}}
	meeting := []models.Contact{{FirstName: "Ann", LastName: "Lee", Phone: "2"}}

	assert.Len(t, Aggregate(existing, meeting, nil), 2)
}

func TestAggregateOrder(t *testing.T) {
	existing := []models.Contact{{FirstName: "Zed", LastName: "Z"}}
	meeting := []models.Contact{{FirstName: "Amy", LastName: "A"}, {FirstName: "Zed", LastName: "Z"}}
	crm := []models.Contact{{FirstName: "Bob", LastName: "B"}}

	out := Aggregate(existing, meeting, crm)

	names := make([]string, len(out))
	for i, c := range out {
		names[i] = c.FirstName
	}
	assert.Equal(t, []string{"Zed", "Amy", "Bob"}, names)
}

func TestAggregateCompletenessFilter(t *testing.T) {
	existing := []models.Contact{{FirstName: "Only"}, {LastName: "Last"}, {FirstName: "Ok", LastName: "Yes"}}
	meeting := []models.Contact{{FirstName: "", LastName: "Meet"}}
	crm := []models.Contact{{FirstName: "Crm", LastName: ""}}

	out, b := AggregateWithBreakdown(existing, meeting, crm)

	require.Len(t, out, 1)
	for _, c := range out {
		assert.NotEmpty(t, c.FirstName)
		assert.NotEmpty(t, c.LastName)
	}
	assert.Equal(t, 4, b.Incomplete)
	assert.Equal(t, 1, b.Existing)
}

func TestAggregateIdempotent(t *testing.T) {
	existing := []models.Contact{
		{FirstName: "Ann", LastName: "Lee", Email: "a@x.com"},
		{FirstName: "Bad"},
	}
	meeting := []models.Contact{
		{FirstName: "Bob", LastName: "Ray", PhoneNumber: "5"},
		{FirstName: "ann", LastName: "lee", Email: "A@x.com"},
	}
	crm := []models.Contact{{FirstName: "Cy", LastName: "Dee", Source: models.SourceSalesforceLead}}

	once := Aggregate(existing, meeting, crm)
	twice := Aggregate(once, nil, nil)

	assert.Equal(t, once, twice)
}

func TestAggregateNormalizesPhone(t *testing.T) {
	out := Aggregate([]models.Contact{{FirstName: "Ann", LastName: "Lee", PhoneNumber: "555"}}, nil, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "555", out[0].Phone)
}

func TestAggregateEmptyInputs(t *testing.T) {
	out := Aggregate(nil, nil, nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestAggregateBreakdownCountsDuplicates(t *testing.T) {
	existing := []models.Contact{{FirstName: "Ann", LastName: "Lee"}}
	meeting := []models.Contact{{FirstName: "Ann", LastName: "Lee"}, {FirstName: "Bob", LastName: "Ray"}}
	crm := []models.Contact{{FirstName: "Bob", LastName: "Ray"}, {FirstName: "Cy", LastName: "Dee"}}

	_, b := AggregateWithBreakdown(existing, meeting, crm)
	assert.Equal(t, Breakdown{Existing: 1, Meeting: 1, CRM: 1, Duplicates: 2}, b)
}

func TestFilterContacts(t *testing.T) {
	contacts := []models.Contact{
		{FirstName: "Ann", LastName: "Lee", Email: "ann@acme.com"},
		{FirstName: "Bob", LastName: "Ray", Email: "bob@other.org"},
	}

	assert.Len(t, FilterContacts(contacts, ""), 2)
	assert.Len(t, FilterContacts(contacts, "acme"), 1)
	assert.Len(t, FilterContacts(contacts, "RAY"), 1)
	assert.Empty(t, FilterContacts(contacts, "nobody"))

	for _, c := range FilterContacts(contacts, "other.org") {
		assert.True(t, strings.HasSuffix(c.Email, "other.org"))
	}
}
