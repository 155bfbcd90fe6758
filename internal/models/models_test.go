package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   any
		want Amount
	}{
		{nil, 0},
		{1500.5, 1500.5},
		{2000, 2000},
		{int64(42), 42},
		{"3000", 3000},
		{" 12.5 ", 12.5},
		{"bad", 0},
		{"", 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{"NaN", 0},
		{json.Number("99"), 99},
		{[]byte("7"), 7},
		{true, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v", tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, ParseAmount(tc.in))
		})
	}
}

func TestAmountDecodesLeniently(t *testing.T) {
	var rides []Ride
	raw := `[
		{"id":"a","total_price":1000},
		{"id":"b","total_price":"2000"},
		{"id":"c","total_price":"bad"},
		{"id":"d","total_price":null},
		{"id":"e"},
		{"id":"f","total_price":{"amount":3}}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &rides))
	require.Len(t, rides, 6)

	want := []float64{1000, 2000, 0, 0, 0, 0}
	for i, r := range rides {
		assert.Equal(t, want[i], r.TotalPrice.Float64(), r.ID)
	}
}

func TestAmountScan(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan([]byte("1250.75")))
	assert.Equal(t, Amount(1250.75), a)
	require.NoError(t, a.Scan(nil))
	assert.Equal(t, Amount(0), a)

	v, err := Amount(10).Value()
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestVerificationTransitions(t *testing.T) {
	assert.True(t, VerificationPending.CanTransition(VerificationApproved))
	assert.True(t, VerificationPending.CanTransition(VerificationRejected))
	assert.False(t, VerificationPending.CanTransition(VerificationPending))
	assert.False(t, VerificationPending.CanTransition(VerificationInReview))

	for _, from := range []VerificationStatus{VerificationApproved, VerificationRejected, VerificationInReview} {
		for _, to := range []VerificationStatus{VerificationPending, VerificationApproved, VerificationRejected} {
			assert.False(t, from.CanTransition(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, VerificationApproved.Terminal())
	assert.True(t, VerificationRejected.Terminal())
	assert.False(t, VerificationPending.Terminal())
	assert.False(t, VerificationStatus("archived").Valid())
}

func TestParseEntityKind(t *testing.T) {
	kind, err := ParseEntityKind(" Rides ")
	require.NoError(t, err)
	assert.Equal(t, KindRides, kind)
	assert.Equal(t, "rides", kind.Table())
	assert.Equal(t, "driver_verifications", KindVerifications.Table())
	assert.Equal(t, "users", KindClients.Table())

	_, err = ParseEntityKind("parcels")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCollectionClone(t *testing.T) {
	driverID := "d1"
	col := Collection{
		Kind: KindRides,
		Rides: []Ride{{
			ID:       "r1",
			DriverID: &driverID,
			Client:   &Client{Name: "Awa"},
		}},
	}
	cp := col.Clone()
	*cp.Rides[0].DriverID = "other"
	cp.Rides[0].Client.Name = "changed"
	cp.Rides[0].Status = RideStatusCancelled

	assert.Equal(t, "d1", *col.Rides[0].DriverID)
	assert.Equal(t, "Awa", col.Rides[0].Client.Name)
	assert.Equal(t, 1, col.Len())
}

func TestCompareValues(t *testing.T) {
	ts := time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)

	c, ok := CompareValues(ts.Format(time.RFC3339), ts.Add(-time.Hour))
	require.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = CompareValues(json.Number("5"), 5)
	require.True(t, ok)
	assert.Equal(t, 0, c)

	c, ok = CompareValues("completed", RideStatusCompleted)
	require.True(t, ok)
	assert.Equal(t, 0, c)

	c, ok = CompareValues(false, false)
	require.True(t, ok)
	assert.Equal(t, 0, c)

	_, ok = CompareValues(map[string]any{}, 1)
	assert.False(t, ok)
}

func TestNewFetchError(t *testing.T) {
	assert.NoError(t, NewFetchError(KindRides, "fetch", nil))

	nf := &NotFoundError{Kind: KindRides, ID: "r1"}
	assert.Same(t, nf, NewFetchError(KindRides, "fetch", nf))

	cause := errors.New("dial tcp: refused")
	err := NewFetchError(KindRides, "fetch", fmt.Errorf("query: %w", cause))
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch rides failed: query: dial tcp: refused", err.Error())
}

func TestCountVerifications(t *testing.T) {
	list := []DriverVerification{
		{Status: VerificationPending},
		{Status: VerificationPending},
		{Status: VerificationInReview},
		{Status: VerificationApproved},
		{Status: VerificationRejected},
	}
	assert.Equal(t, VerificationCounts{Pending: 2, InReview: 1, Approved: 1, Rejected: 1, Total: 5}, CountVerifications(list))
}

func TestAdminPassword(t *testing.T) {
	a := &Admin{FullName: "élodie Kaboré", Password: "s3cret"}
	require.NoError(t, a.HashPassword())
	assert.Empty(t, a.Password)
	assert.NoError(t, a.CheckPassword("s3cret"))
	assert.Error(t, a.CheckPassword("wrong"))
	assert.Equal(t, "É", a.Initial())
	assert.Equal(t, "A", Admin{}.Initial())
}
