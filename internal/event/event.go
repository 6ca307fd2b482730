// Package event provides the internal event bus used to decouple the
// silo'd parts of the gifselector architecture; the import pipeline
// dispatches lifecycle events which the websocket activity hub (and any
// other subscriber) consumes without the two knowing about each other.
package event

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/sratabix/gifselector/pkg/logger"
)

var log = logger.Get("Activity")

type (
	Event         string
	Payload       any
	HandlerMethod func(Event, Payload)

	HandlerChannel chan HandlerEvent
	HandlerEvent   struct {
		Event   Event
		Payload Payload
	}

	// ImportActivity is the payload carried by the IMPORT_* events. It
	// mirrors the per-URL result structure of the import pipeline.
	ImportActivity struct {
		BatchID uuid.UUID `json:"batch_id"`
		URL     string    `json:"url"`
		Success bool      `json:"success"`
		Slug    string    `json:"slug,omitempty"`
		Error   string    `json:"error,omitempty"`
	}

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterHandlerChannel(HandlerChannel, ...Event)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	eventHandler struct {
		fnHandlers   map[Event][]handlerMethod
		chanHandlers map[Event][]HandlerChannel
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}
)

const (
	IMPORT_STARTED  Event = "import:started"
	IMPORT_UPDATE   Event = "import:update"
	IMPORT_COMPLETE Event = "import:complete"

	GIF_CREATED Event = "gif:created"
	GIF_DELETED Event = "gif:deleted"
)

func New() EventCoordinator {
	return &eventHandler{
		fnHandlers:   make(map[Event][]handlerMethod),
		chanHandlers: make(map[Event][]HandlerChannel),
	}
}

// RegisterHandlerChannel takes a channel and a set of events, and will send
// a HandlerEvent on the channel any time a Dispatch for one of the events
// occurs.
//
// If the channel is BLOCKED when the event bus attempts to send on it, then
// the thread dispatching the event will also be BLOCKED. Buffer handler
// channels appropriately to avoid dispatcher-side blocking.
func (handler *eventHandler) RegisterHandlerChannel(handle HandlerChannel, events ...Event) {
	for _, event := range events {
		handler.chanHandlers[event] = append(handler.chanHandlers[event], handle)
	}
}

// RegisterHandlerFunction stores a handler which is called synchronously,
// with the payload, whenever the event is dispatched. The handle provided
// should be guaranteed to return quickly, else other threads calling
// Dispatch on this event bus will be blocked.
func (handler *eventHandler) RegisterHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, false})
}

// RegisterAsyncHandlerFunction stores a handler which will be called inside
// of a goroutine when the event is dispatched; the speed at which the handle
// runs is of no consequence to the event bus.
func (handler *eventHandler) RegisterAsyncHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, true})
}

func (handler *eventHandler) registerHandlerMethod(event Event, handle handlerMethod) {
	handler.fnHandlers[event] = append(handler.fnHandlers[event], handle)
}

// Dispatch sends the payload to every handler registered for the event
// provided. Note that this method WILL block if a synchronous handler
// function is blocking, or if channel handlers are blocked.
func (handler *eventHandler) Dispatch(event Event, payload Payload) {
	if err := handler.validatePayload(event, payload); err != nil {
		log.Emit(logger.FATAL, "Dispatch for event %v FAILED validation: %v\n", event, err)
		return
	}

	if handles, ok := handler.fnHandlers[event]; ok {
		for _, handle := range handles {
			if handle.async {
				go handle.handle(event, payload)
			} else {
				handle.handle(event, payload)
			}
		}
	}

	if handles, ok := handler.chanHandlers[event]; ok {
		payload := HandlerEvent{event, payload}
		for _, handle := range handles {
			handle <- payload
		}
	}
}

// validatePayload ensures that the payload provided is valid for the event
// specified. An error is returned if the payload is not valid, in which case
// the event must not be sent to the registered handlers.
func (handler *eventHandler) validatePayload(event Event, payload Payload) error {
	var payloadTypeName string
	if t := reflect.TypeOf(payload); t != nil {
		payloadTypeName = t.Name()
	} else {
		payloadTypeName = "Nil"
	}

	switch event {
	case IMPORT_STARTED, IMPORT_COMPLETE, GIF_CREATED, GIF_DELETED:
		if _, ok := payload.(uuid.UUID); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event, expected uuid.UUID payload", payloadTypeName, event)
		}

		return nil
	case IMPORT_UPDATE:
		if _, ok := payload.(ImportActivity); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event, expected ImportActivity payload", payloadTypeName, event)
		}

		return nil
	}

	return fmt.Errorf("event type %s not recognized for validation", event)
}
