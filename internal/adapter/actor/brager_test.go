package actor

import (
	"testing"
	"time"

	"github.com/berfenger/brager2mqtt/internal/core/domain"
	"github.com/berfenger/brager2mqtt/internal/util/actorutil"
	"github.com/berfenger/brager2mqtt/pkg/bragerconnect"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRefreshDevicesBragerActor(t *testing.T) {

	assert := assert.New(t)

	client, err := bragerconnect.CreateTestClient()
	if err != nil {
		t.Error(err)
		return
	}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewBragerActor(client, nil, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.RefreshDevicesRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.RefreshDevicesResponse)

	assert.False(resp.HasResponseError(), "refresh should succeed")
	assert.Equal(len(resp.Devices), 1, "device count")
	assert.Equal(resp.Devices[0].ID(), "FTTCTBSLCE", "device id")
	assert.NotNil(resp.Devices[0].Status, "device status decoded")

	field, ok := resp.Devices[0].Status.Field(4, 0)
	assert.True(ok, "boiler temperature present")
	assert.Equal(field.Value, 61.5, "boiler temperature value")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetSessionStateBragerActor(t *testing.T) {

	assert := assert.New(t)

	client, err := bragerconnect.CreateTestClient()
	if err != nil {
		t.Error(err)
		return
	}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewBragerActor(client, nil, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetSessionStateRequest{}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetSessionStateResponse)

	assert.True(resp.Connected, "connected")
	assert.True(resp.LoggedIn, "logged in")
	assert.Equal(resp.ActiveDevice, "FTTCTBSLCE", "active device")

	context.Stop(pid)

	as.Shutdown()
}

func TestSetUserVariableBragerActor(t *testing.T) {

	assert := assert.New(t)

	client, err := bragerconnect.CreateTestClient()
	if err != nil {
		t.Error(err)
		return
	}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewBragerActor(client, nil, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.SetUserVariableRequest{Name: "preffered_lang", Value: "pl"}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SetUserVariableResponse)

	assert.False(resp.HasResponseError(), "set user variable should succeed")

	value, err := client.GetUserVariable("preffered_lang")
	assert.NoError(err)
	assert.Equal(value, "pl", "variable stored")

	context.Stop(pid)

	as.Shutdown()
}
