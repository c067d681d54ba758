package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextVersionNumber(t *testing.T) {
	cases := []struct {
		name        string
		maxRecorded int
		counter     int
		want        int
	}{
		{"fresh deliverable", 0, 0, 1},
		{"history ahead of counter", 4, 2, 5},
		{"legacy counter without rows", 0, 3, 4},
		{"in sync", 7, 7, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextVersionNumber(tc.maxRecorded, tc.counter))
		})
	}
}

func TestApprovalStatusResultingStatus(t *testing.T) {
	assert.Equal(t, DeliverableStatusApproved, ApprovalStatusApproved.ResultingStatus())
	assert.Equal(t, DeliverableStatusInReview, ApprovalStatusChangesRequested.ResultingStatus())
}

func TestCoordinatesPresence(t *testing.T) {
	var body struct {
		Coordinates Coordinates `json:"coordinates"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{}`), &body))
	assert.True(t, body.Coordinates.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"coordinates":null}`), &body))
	assert.True(t, body.Coordinates.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"coordinates":{"x":1,"y":2}}`), &body))
	assert.False(t, body.Coordinates.IsZero())
	assert.JSONEq(t, `{"x":1,"y":2}`, string(body.Coordinates))

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"coordinates":{"x":1,"y":2}}`, string(out))
}

func TestCoordinatesScan(t *testing.T) {
	var c Coordinates
	src := []byte(`{"x":3}`)
	require.NoError(t, c.Scan(src))
	src[2] = 'y'
	assert.Equal(t, `{"x":3}`, string(c), "scan must copy driver buffer")

	require.NoError(t, c.Scan(nil))
	assert.True(t, c.IsZero())

	assert.Error(t, c.Scan(42))
}

func TestErrorKinds(t *testing.T) {
	err := NotFoundError("deliverable")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "deliverable not found", err.Error())

	cause := errors.New("duplicate key")
	err = ConflictError("version number taken", cause)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, errors.Is(err, cause))

	err = ValidationError("%s is required", "fileUrl")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "fileUrl is required", err.Error())
}
