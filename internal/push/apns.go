// Package push sends new-post alerts to registered devices over APNs.
// Delivery is best effort: failures are logged and never surfaced to
// the posting user.
package push

import (
	"fmt"
	"sync"

	"framez-backend/internal/models"
	"framez-backend/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// Notifier fans post alerts out to device tokens. It keeps its own live
// mirror of the device registry through a store subscription, the same
// mechanism the feed uses for posts.
type Notifier struct {
	client *apns2.Client
	topic  string

	mu      sync.RWMutex
	devices []*models.Device

	cancelOnce sync.Once
	cancel     store.CancelFunc
}

// NewNotifier loads the APNs client certificate and starts mirroring
// the device registry.
func NewNotifier(st store.Store, certFile, certPassword, topic string, production bool) (*Notifier, error) {
	cert, err := certificate.FromP12File(certFile, certPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	n := &Notifier{client: client, topic: topic}
	n.cancel = st.Subscribe(store.Query{
		Collection: store.CollectionDevices,
		OrderBy:    "createdAt",
		Descending: true,
	}, n.applySnapshot, func(err error) {
		log.Error().Err(err).Msg("Device registry snapshot delivery failed")
	})
	return n, nil
}

// Close stops mirroring the device registry. Idempotent.
func (n *Notifier) Close() {
	n.cancelOnce.Do(n.cancel)
}

func (n *Notifier) applySnapshot(snap store.Snapshot) {
	devices := make([]*models.Device, 0, len(snap))
	for _, doc := range snap {
		devices = append(devices, store.DeviceFromDocument(doc))
	}
	n.mu.Lock()
	n.devices = devices
	n.mu.Unlock()
}

// NotifyNewPost alerts every registered device except the author's and
// those reported online by skipOnline.
func (n *Notifier) NotifyNewPost(post *models.Post, skipOnline func(userID string) bool) {
	n.mu.RLock()
	targets := make([]*models.Device, 0, len(n.devices))
	for _, d := range n.devices {
		if d.UserID == post.UserID {
			continue
		}
		if skipOnline != nil && skipOnline(d.UserID) {
			continue
		}
		targets = append(targets, d)
	}
	n.mu.RUnlock()

	body := post.Content
	if body == "" {
		body = "shared a photo"
	}

	for _, device := range targets {
		go func(device *models.Device) {
			notification := &apns2.Notification{
				DeviceToken: device.Token,
				Topic:       n.topic,
				Payload: payload.NewPayload().
					AlertTitle(post.UserDisplayName).
					AlertBody(body).
					Sound("default"),
			}
			resp, err := n.client.Push(notification)
			if err != nil {
				log.Error().Err(err).Str("user_id", device.UserID).Msg("Failed to push notification")
				return
			}
			if !resp.Sent() {
				log.Warn().
					Str("user_id", device.UserID).
					Str("reason", resp.Reason).
					Msg("Push notification rejected")
			}
		}(device)
	}
}
