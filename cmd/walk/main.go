// Command walk drives a scripted end-to-end journey against a running
// backend: plan a route, walk it under the safety monitor, arrive, rate
// the journey, then exercise the SOS flow.
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/saaj376/StreetSafe/internal/client"
	"github.com/saaj376/StreetSafe/internal/geo"
	"github.com/saaj376/StreetSafe/internal/navigate"
	"github.com/saaj376/StreetSafe/internal/position"
	"github.com/saaj376/StreetSafe/internal/rating"
	"github.com/saaj376/StreetSafe/internal/sos"
	"github.com/saaj376/StreetSafe/internal/voice"
)

type walkConfig struct {
	APIBaseURL      string        `mapstructure:"API_BASE_URL"`
	UserToken       string        `mapstructure:"USER_TOKEN"`
	MonitorInterval time.Duration `mapstructure:"MONITOR_INTERVAL"`
	SOSInterval     time.Duration `mapstructure:"SOS_INTERVAL"`
	WalkDuration    time.Duration `mapstructure:"WALK_DURATION"`
}

func loadWalkConfig() walkConfig {
	viper.AutomaticEnv()
	viper.SetDefault("API_BASE_URL", "http://localhost:8080")
	viper.SetDefault("USER_TOKEN", "")
	viper.SetDefault("MONITOR_INTERVAL", 10*time.Second)
	viper.SetDefault("SOS_INTERVAL", 5*time.Second)
	viper.SetDefault("WALK_DURATION", 30*time.Second)

	var cfg walkConfig
	_ = viper.Unmarshal(&cfg)
	return cfg
}

// logSpeaker satisfies voice.Speaker by printing announcements.
type logSpeaker struct {
	log *logrus.Entry
}

func (s logSpeaker) Speak(_ context.Context, text string) error {
	s.log.WithField("say", text).Info("announcement")
	return nil
}

// logMessenger stands in for the platform share sheet.
type logMessenger struct {
	log *logrus.Entry
}

func (m logMessenger) SendDistress(_ context.Context, cur geo.Coordinate, guardianURL string) error {
	m.log.WithFields(logrus.Fields{
		"lat":          cur.Lat,
		"lng":          cur.Lng,
		"guardian_url": guardianURL,
	}).Info("distress message")
	return nil
}

// scriptedWalk interpolates fixes between the endpoints.
func scriptedWalk(start, end geo.Coordinate, steps int, interval time.Duration) position.Scripted {
	fixes := make([]position.Fix, 0, steps+1)
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		fixes = append(fixes, position.Fix{Coord: geo.Coordinate{
			Lat: start.Lat + (end.Lat-start.Lat)*f,
			Lng: start.Lng + (end.Lng-start.Lng)*f,
		}})
	}
	return position.Scripted{Fixes: fixes, Interval: interval}
}

func main() {
	cfg := loadWalkConfig()
	log := logrus.WithField("component", "walk")

	start := geo.Coordinate{Lat: 13.0500, Lng: 80.2500}
	end := geo.Coordinate{Lat: 13.0700, Lng: 80.2600}

	api := client.New(cfg.APIBaseURL, cfg.UserToken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := position.NewTracker(scriptedWalk(start, end, 20, cfg.WalkDuration/20))
	go tracker.Run(ctx)

	announcer := voice.NewAnnouncer(logSpeaker{log: log})
	defer announcer.Close()

	session := navigate.NewSession(api, tracker, announcer, cfg.MonitorInterval)
	if err := session.Start(ctx, start, end, client.ModeBoth); err != nil {
		log.WithError(err).Fatal("navigation start failed")
	}
	log.WithField("state", session.State()).Info("navigating")

	go func() {
		for alert := range session.Alerts() {
			log.WithFields(logrus.Fields{
				"type":    alert.Type,
				"message": alert.Message,
			}).Warn("safety alert")
		}
	}()

	time.Sleep(cfg.WalkDuration)

	segments, err := session.Arrive()
	if err != nil {
		log.WithError(err).Fatal("arrival failed")
	}
	log.WithField("segments", len(segments)).Info("arrived")

	agg := rating.NewAggregator(api, "walker", func() {
		if _, err := api.Heatmap(ctx); err != nil {
			log.WithError(err).Warn("heatmap refresh failed")
		}
	})
	if n, err := agg.Submit(ctx, segments, 5, []string{"welllit"}); err != nil {
		log.WithError(err).WithField("rated", n).Warn("journey rating incomplete")
	} else {
		log.WithField("rated", n).Info("journey rated")
	}

	// SOS round trip: activate, let a few broadcasts through, deactivate.
	channel := sos.NewChannel(api, logMessenger{log: log}, tracker, cfg.SOSInterval)
	token, err := channel.Activate(ctx)
	if err != nil {
		log.WithError(err).Fatal("sos activation failed")
	}
	log.WithFields(logrus.Fields{
		"token":        token,
		"guardian_url": channel.GuardianURL(),
	}).Info("sos active")

	time.Sleep(3 * cfg.SOSInterval)

	if err := channel.Deactivate(ctx); err != nil {
		log.WithError(err).Fatal("sos deactivation failed")
	}
	log.Info("sos deactivated")
}
