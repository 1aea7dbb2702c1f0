package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/brager2mqtt/internal/core/domain"
	"github.com/berfenger/brager2mqtt/internal/util/actorutil"
	"github.com/berfenger/brager2mqtt/pkg/bragerconnect"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type BragerActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   bragerconnect.Client
	devices  []string
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewBragerActor(client bragerconnect.Client, devices []string, logger *zap.Logger) *BragerActor {
	act := &BragerActor{
		client:   client,
		devices:  devices,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_BRAGER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *BragerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *BragerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("brager@starting started")
		if err := state.client.Connect(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		_ = state.client.Disconnect()
	default:
		state.logger.Debug("brager@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *BragerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("brager@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_BRAGER,
			Healthy: state.client.Connected() && state.client.LoggedIn(),
			State:   "idle",
		})
	case domain.GetDevicesRequest:
		state.logger.Debug("brager@default: GetDevicesRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetDevicesResponse{
			Devices: state.client.Devices(),
		})
	case domain.GetSessionStateRequest:
		state.logger.Debug("brager@default: GetSessionStateRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetSessionStateResponse{
			Connected:    state.client.Connected(),
			LoggedIn:     state.client.LoggedIn(),
			ActiveDevice: state.client.ActiveDeviceID(),
		})
	case domain.RefreshDevicesRequest:
		state.logger.Debug("brager@default: RefreshDevicesRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.refreshDevices),
			mapTaskResult[domain.RefreshDevicesResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.RefreshDevicesResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(30 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingBrager)
	case domain.RefreshDeviceRequest:
		state.logger.Debug("brager@default: RefreshDeviceRequest", zap.String("device", msg.DeviceId))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.RefreshDeviceResponse, error) {
			return state.refreshDevice(msg.DeviceId)
		}), mapTaskResult[domain.RefreshDeviceResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.RefreshDeviceResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(30 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingBrager)
	case domain.SetUserVariableRequest:
		state.logger.Debug("brager@default: SetUserVariableRequest", zap.String("name", msg.Name))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetUserVariableResponse, error) {
			if err := state.client.SetUserVariable(msg.Name, msg.Value); err != nil {
				return nil, err
			}
			return &domain.SetUserVariableResponse{}, nil
		}), mapTaskResult[domain.SetUserVariableResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetUserVariableResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(10 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingBrager)
	case *actor.Stopping:
		_ = state.client.Disconnect()
	default:
		state.logger.Debug("brager@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *BragerActor) WaitingBrager(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("brager@WaitingBrager backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		_ = state.client.Disconnect()
	default:
		state.logger.Debug("brager@WaitingBrager stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// refreshDevices pulls fresh pool, task and alarm data. An explicit
// device list in the config narrows the refresh to those ids.
func (a *BragerActor) refreshDevices() (*domain.RefreshDevicesResponse, error) {
	if len(a.devices) == 0 {
		devices, err := a.client.UpdateAll()
		if err != nil {
			return nil, err
		}
		return &domain.RefreshDevicesResponse{Devices: devices}, nil
	}
	var devices []*bragerconnect.Device
	for _, id := range a.devices {
		device, err := a.client.UpdateDevice(id, nil)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return &domain.RefreshDevicesResponse{Devices: devices}, nil
}

func (a *BragerActor) refreshDevice(id string) (*domain.RefreshDeviceResponse, error) {
	device, err := a.client.UpdateDevice(id, nil)
	if err != nil {
		return nil, err
	}
	return &domain.RefreshDeviceResponse{Device: device}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
