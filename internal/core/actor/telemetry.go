package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/brager2mqtt/internal/config"
	"github.com/berfenger/brager2mqtt/internal/core/domain"
	"github.com/berfenger/brager2mqtt/internal/core/events"
	. "github.com/berfenger/brager2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

type TelemetryActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	bragerActor *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream

	logger *zap.Logger
}

type telemetryTick struct {
}

func NewTelemetryActor(config *config.Config, bragerActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *TelemetryActor {
	act := &TelemetryActor{
		config:      config,
		bragerActor: bragerActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_TELEMETRY, logger),
		eventStream: eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *TelemetryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *TelemetryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("telemetry@starting started")

		if state.config.MonitorConfig.PollIntervalMillis > 0 {
			state.scheduler = scheduler.NewTimerScheduler(ctx)
			state.scheduler.RequestOnce(time.Duration(state.config.MonitorConfig.PollIntervalMillis)*time.Millisecond, ctx.Self(), telemetryTick{})
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)

		// first poll right away so sensors get a state before the
		// first scheduled tick
		ctx.Send(ctx.Self(), telemetryTick{})
	case *actor.Restarting:
	default:
		state.logger.Debug("telemetry@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TelemetryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("telemetry@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_TELEMETRY,
			Healthy: true,
			State:   "idle",
		})
	case telemetryTick:
		state.logger.Debug("telemetry@default tick")
		state.refresh(ctx)

		// schedule next tick
		if state.scheduler != nil {
			state.scheduler.RequestOnce(time.Duration(state.config.MonitorConfig.PollIntervalMillis)*time.Millisecond, ctx.Self(), telemetryTick{})
		}
		state.behavior.BecomeStacked(state.WaitingRefreshReceive)
	case domain.PollNowRequest:
		// on-demand refresh, no schedule change
		state.logger.Debug("telemetry@default PollNowRequest")
		state.refresh(ctx)
		state.behavior.BecomeStacked(state.WaitingRefreshReceive)
	default:
		state.logger.Debug("telemetry@default: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TelemetryActor) refresh(ctx actor.Context) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.bragerActor, domain.RefreshDevicesRequest{}, 35*time.Second), func(err error) any {
		return domain.RefreshDevicesResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *TelemetryActor) WaitingRefreshReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.RefreshDevicesResponse:
		if msg.HasResponseError() {
			state.logger.Error("telemetry@waiting RefreshDevicesResponse error", zap.Error(msg.GetResponseError()))
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
			return
		}
		state.logger.Debug("telemetry@waiting RefreshDevicesResponse", zap.Int("devices", len(msg.Devices)))
		for _, device := range msg.Devices {
			if device == nil || device.Status == nil {
				continue
			}
			evs := events.DeviceToUpdateEvents(device)
			for _, ev := range evs {
				state.eventStream.Publish(ev)
			}
		}

		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("telemetry@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}
