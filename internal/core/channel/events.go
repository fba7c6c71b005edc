package channel

import (
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
	"github.com/dep2p/go-signal/pkg/types"
)

// emitters 注册表事件发射器，bus 为 nil 时全部为空操作
type emitters struct {
	joined   pkgif.Emitter
	left     pkgif.Emitter
	relayed  pkgif.Emitter
	failed   pkgif.Emitter
	overflow pkgif.Emitter
}

func newEmitters(bus pkgif.EventBus) (*emitters, error) {
	e := &emitters{}
	if bus == nil {
		return e, nil
	}

	var err error
	for _, b := range []struct {
		dst *pkgif.Emitter
		typ interface{}
	}{
		{&e.joined, new(types.EvtMemberJoined)},
		{&e.left, new(types.EvtMemberLeft)},
		{&e.relayed, new(types.EvtMessageRelayed)},
		{&e.failed, new(types.EvtDeliveryFailed)},
		{&e.overflow, new(types.EvtQueueOverflow)},
	} {
		em, emErr := bus.Emitter(b.typ)
		if emErr != nil {
			err = multierr.Append(err, emErr)
			continue
		}
		*b.dst = em
	}
	if err != nil {
		_ = e.close()
		return nil, err
	}
	return e, nil
}

func (e *emitters) emit(em pkgif.Emitter, evt interface{}) {
	if em == nil {
		return
	}
	if err := em.Emit(evt); err != nil {
		log.Debug("发射事件失败", "err", err)
	}
}

func (e *emitters) close() error {
	var err error
	for _, em := range []pkgif.Emitter{e.joined, e.left, e.relayed, e.failed, e.overflow} {
		if em != nil {
			err = multierr.Append(err, em.Close())
		}
	}
	return err
}
