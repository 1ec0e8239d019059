package cli

import (
	"sync"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// followNotifications renders bus events while a use case runs. The returned
// stop func flushes events still buffered and closes the subscription.
func followNotifications(bus usecase.EventBus, handle func(usecase.Event), names ...domain.Notification) (func(), error) {
	sub, err := bus.Subscribe(names...)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case event := <-sub.Out():
				handle(event)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		for {
			select {
			case event := <-sub.Out():
				handle(event)
			default:
				_ = sub.Close()
				return
			}
		}
	}, nil
}
