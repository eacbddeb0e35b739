package notify

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type payload struct {
	Content string `json:"content"`
}

// Dispatcher posts completion messages to a webhook. Delivery is best
// effort: transport failures are logged and never surfaced.
type Dispatcher struct {
	URL    string
	Client *http.Client
}

func NewDispatcher(url string) *Dispatcher {
	return &Dispatcher{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *Dispatcher) Notify(message string) {
	if d.URL == "" {
		return
	}
	body, _ := json.Marshal(payload{Content: message})
	go func() {
		resp, err := d.Client.Post(d.URL, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("[Webhook] send failed: %v", err)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("[Webhook] send returned %d", resp.StatusCode)
		}
	}()
}
