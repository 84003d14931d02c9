package models

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Zero coordinates (equator, prime meridian) must survive request binding;
// the range checks belong to the services.
func TestCreateClaimRequest_BindsZeroCoordinates(t *testing.T) {
	var req CreateClaimRequest
	err := binding.JSON.BindBody([]byte(`{"lat":0,"lon":0,"address_label":"Null Island"}`), &req)
	require.NoError(t, err)
	assert.Zero(t, req.Lat)
	assert.Zero(t, req.Lon)
	assert.Equal(t, "Null Island", req.AddressLabel)
}

func TestCreateClaimRequest_StillRequiresLabel(t *testing.T) {
	var req CreateClaimRequest
	err := binding.JSON.BindBody([]byte(`{"lat":1,"lon":1}`), &req)
	assert.Error(t, err)
}

func TestTouchPathRequest_BindsZeroCoordinates(t *testing.T) {
	friendID := uuid.New()
	var req TouchPathRequest
	err := binding.JSON.BindBody([]byte(`{"friend_id":"`+friendID.String()+`","lat":0,"lon":0}`), &req)
	require.NoError(t, err)
	assert.Equal(t, friendID, req.FriendID)
}
