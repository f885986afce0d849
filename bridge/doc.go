/*
Package bridge turns query controller callbacks into an ordered event
stream.

A Bridge becomes the sole delegate of one controller. Every callback is
republished at once as a storagemodels.ChangeEvent, in callback order, with
no coalescing or filtering. Subscribers joining late first receive the
latest event, then everything after it:

	ctrl, _ := store.AttachQueryController(q, "")
	b, _ := bridge.New(ctrl)
	if err := b.Start(ctx); err != nil {
	    return err
	}
	for e := range b.Subscribe(ctx) {
	    ...
	}

The lifecycle (uninitialized, attached, active, closed) is driven by a
looplab/fsm state machine and only moves forward.
*/
package bridge
