package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/fieldsales/core/internal/infrastructure/logger"
)

// changeChannel is the NOTIFY channel the schema triggers publish on; the
// payload is the table name that changed.
const changeChannel = "fieldsales_changes"

// changeListener wraps a pq.Listener and forwards every notification payload
// to the store's onChange callback from a dedicated goroutine.
type changeListener struct {
	listener *pq.Listener
	logger   *logger.Logger
	done     chan struct{}
}

func newChangeListener(dsn string, log *logger.Logger, onChange func(collection string)) (*changeListener, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warnw("Change listener connection event", "event", ev, "error", err)
		}
	})

	if err := listener.Listen(changeChannel); err != nil {
		listener.Close()
		return nil, err
	}

	cl := &changeListener{
		listener: listener,
		logger:   log,
		done:     make(chan struct{}),
	}

	go cl.run(onChange)

	return cl, nil
}

func (cl *changeListener) run(onChange func(collection string)) {
	for {
		select {
		case <-cl.done:
			return
		case notification := <-cl.listener.Notify:
			// A nil notification means the connection was re-established;
			// notifications may have been missed, so refresh everything.
			if notification == nil {
				onChange("shops")
				onChange("tasks")
				continue
			}
			onChange(notification.Extra)
		case <-time.After(90 * time.Second):
			if err := cl.listener.Ping(); err != nil {
				cl.logger.Warnw("Change listener ping failed", "error", err)
			}
		}
	}
}

// Close stops the forwarding goroutine and the underlying listener.
func (cl *changeListener) Close() error {
	close(cl.done)
	return cl.listener.Close()
}
