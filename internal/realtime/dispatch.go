package realtime

import (
	"encoding/json"
	"log"

	"github.com/khanabook/pos-station/internal/model"
)

// Dispatcher decodes events by topic and hands the typed payload to the
// matching callback. Orders and tables carry JSON payloads; stock alerts
// are plain strings. Unknown topics are logged and dropped so a newer
// backend cannot wedge an older station.
type Dispatcher struct {
	OnOrder       func(model.Order)
	OnOrderUpdate func(model.Order)
	OnTable       func(model.TableUpdate)
	OnStockAlert  func(string)
}

func (d Dispatcher) Dispatch(event Event) {
	switch event.Topic {
	case TopicOrders:
		decodeTo(event, d.OnOrder)
	case TopicOrderUpdate:
		decodeTo(event, d.OnOrderUpdate)
	case TopicTables:
		decodeTo(event, d.OnTable)
	case TopicStockAlerts:
		decodeTo(event, d.OnStockAlert)
	default:
		log.Printf("ignoring event on unknown topic %q", event.Topic)
	}
}

func decodeTo[T any](event Event, fn func(T)) {
	if fn == nil {
		return
	}
	var payload T
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		log.Printf("ERROR: decode %s payload: %v", event.Topic, err)
		return
	}
	fn(payload)
}
