package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"github.com/chachabrian/mooveit-admin/internal/config"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// ErrFirebaseDisabled is returned by Firebase calls when no service account
// is configured.
var ErrFirebaseDisabled = errors.New("firebase not configured")

// Firebase wraps the Admin SDK clients the dashboard uses: ID-token
// verification for dashboard logins and FCM topic pushes to admins.
type Firebase struct {
	app       *firebase.App
	auth      *auth.Client
	messaging *messaging.Client
	topic     string
	log       log.FieldLogger
}

// NewFirebase initializes the Firebase Admin SDK. A missing service account
// path is not an error: the returned *Firebase is disabled and every push is
// skipped.
func NewFirebase(ctx context.Context, cfg config.FirebaseConfig, logger log.FieldLogger) (*Firebase, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	f := &Firebase{topic: cfg.AdminTopic, log: logger.WithField("component", "firebase")}

	if cfg.ServiceAccountPath == "" {
		f.log.Warn("FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications and Firebase logins are disabled.")
		return f, nil
	}

	opt := option.WithCredentialsFile(cfg.ServiceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	f.app = app
	f.auth = authClient
	f.messaging = msgClient
	f.log.Info("Firebase initialized successfully")
	return f, nil
}

// Enabled reports whether a service account was loaded.
func (f *Firebase) Enabled() bool {
	return f != nil && f.app != nil
}

// Identity is the verified subject of a Firebase ID token.
type Identity struct {
	UID   string
	Email string
}

// VerifyIDToken checks a Firebase ID token and returns its subject.
func (f *Firebase) VerifyIDToken(ctx context.Context, idToken string) (Identity, error) {
	if !f.Enabled() {
		return Identity{}, ErrFirebaseDisabled
	}
	token, err := f.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid firebase token: %w", err)
	}
	email, _ := token.Claims["email"].(string)
	return Identity{UID: token.UID, Email: email}, nil
}

// NotificationPayload represents the notification data
type NotificationPayload struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Level    string         `json:"level,omitempty"` // info, success, warning, error
	Data     map[string]any `json:"data,omitempty"`
	Priority string         `json:"priority,omitempty"` // high, normal
}

// getAndroidConfig returns Android-specific notification configuration
func getAndroidConfig(payload NotificationPayload) *messaging.AndroidConfig {
	priority := messaging.PriorityHigh
	if payload.Priority == "normal" {
		priority = messaging.PriorityDefault
	}

	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:        "default",
			ChannelID:    "mooveit_admin",
			Priority:     priority,
			DefaultSound: true,
			Color:        "#7FFF00",
		},
	}
}

// dataStrings converts the data map to the string map FCM requires
func dataStrings(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case string:
			out[key] = v
		case int, int64, float64, bool:
			out[key] = fmt.Sprintf("%v", v)
		default:
			jsonData, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[key] = string(jsonData)
		}
	}
	return out
}

func (f *Firebase) topicMessage(payload NotificationPayload) *messaging.Message {
	data := dataStrings(payload.Data)
	if payload.Level != "" {
		data["level"] = payload.Level
	}
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:    data,
		Topic:   f.topic,
		Android: getAndroidConfig(payload),
	}
}

// NotifyAdmins sends a notification to the admin topic
func (f *Firebase) NotifyAdmins(ctx context.Context, payload NotificationPayload) error {
	if !f.Enabled() {
		return nil
	}

	response, err := f.messaging.Send(ctx, f.topicMessage(payload))
	if err != nil {
		return fmt.Errorf("error sending topic message: %w", err)
	}

	f.log.WithFields(log.Fields{"topic": f.topic, "response": response}).Debug("Sent admin notification")
	return nil
}

// SubscribeAdmins subscribes device tokens to the admin topic
func (f *Firebase) SubscribeAdmins(ctx context.Context, tokens []string) error {
	if !f.Enabled() {
		return ErrFirebaseDisabled
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no tokens provided")
	}

	response, err := f.messaging.SubscribeToTopic(ctx, tokens, f.topic)
	if err != nil {
		return fmt.Errorf("error subscribing to topic: %w", err)
	}

	f.log.WithFields(log.Fields{
		"topic":    f.topic,
		"success":  response.SuccessCount,
		"failures": response.FailureCount,
	}).Info("Subscribed tokens to admin topic")
	return nil
}
