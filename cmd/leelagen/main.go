// Command leelagen drives a generation end to end: start, poll, publish.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"leelaaverse/internal/client"
	"leelaaverse/internal/entity/dto"

	"github.com/sirupsen/logrus"
)

func main() {
	var (
		server     = flag.String("server", envOr("LEELA_SERVER", "http://localhost:8080"), "API base URL")
		token      = flag.String("token", os.Getenv("LEELA_TOKEN"), "bearer token (skips login)")
		email      = flag.String("email", os.Getenv("LEELA_EMAIL"), "login email")
		password   = flag.String("password", os.Getenv("LEELA_PASSWORD"), "login password")
		prompt     = flag.String("prompt", "", "generation prompt (required)")
		modelID    = flag.String("model", "", "model selector, empty for the default model")
		aspect     = flag.String("aspect", "", "aspect ratio, e.g. 1:1 or 16:9")
		caption    = flag.String("caption", "", "post caption")
		tags       = flag.String("tags", "", "comma separated tags")
		visibility = flag.String("visibility", "public", "public, followers or private")
		noPublish  = flag.Bool("no-publish", false, "stop after the image is ready")
		interval   = flag.Duration("interval", client.DefaultPollConfig.Interval, "poll interval")
		attempts   = flag.Int("attempts", client.DefaultPollConfig.MaxAttempts, "maximum poll attempts")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if strings.TrimSpace(*prompt) == "" {
		fmt.Fprintln(os.Stderr, "leelagen: -prompt is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := client.New(*server, client.WithToken(*token))
	if err := run(ctx, api, options{
		email:      *email,
		password:   *password,
		prompt:     *prompt,
		model:      *modelID,
		aspect:     *aspect,
		caption:    *caption,
		tags:       splitTags(*tags),
		visibility: *visibility,
		publish:    !*noPublish,
		poll:       client.PollConfig{Interval: *interval, MaxAttempts: *attempts},
	}); err != nil {
		logrus.WithError(err).Error("leelagen failed")
		os.Exit(1)
	}
}

type options struct {
	email, password string
	prompt, model   string
	aspect, caption string
	tags            []string
	visibility      string
	publish         bool
	poll            client.PollConfig
}

func run(ctx context.Context, api *client.Client, opts options) error {
	if api.Token() == "" {
		if opts.email == "" || opts.password == "" {
			return errors.New("either -token or -email/-password is required")
		}
		auth, err := api.Login(ctx, opts.email, opts.password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		logrus.WithField("user", auth.User.Username).Info("logged in")
	}

	started, err := api.GenerateImage(ctx, dto.GenerateImageRequest{
		Prompt:        opts.prompt,
		SelectedModel: opts.model,
		AspectRatio:   opts.aspect,
	})
	if err != nil {
		return fmt.Errorf("start generation: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"request_id":     started.RequestID,
		"estimated_time": started.EstimatedTime,
	}).Info("generation started")

	startedAt := time.Now()
	poller := client.NewPoller(api, opts.poll)
	last := ""
	poller.OnPhase = func(attempt int, status *dto.GenerationStatusResponse) {
		if status.Status == last {
			return
		}
		last = status.Status
		fields := logrus.Fields{"status": status.Status, "attempt": attempt}
		if status.QueuePosition != nil {
			fields["queue_position"] = *status.QueuePosition
		}
		logrus.WithFields(fields).Info("generation phase")
	}

	result, err := poller.Wait(ctx, started.RequestID)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"image_url": result.ImageURL,
		"elapsed":   time.Since(startedAt).Round(time.Second).String(),
	}).Info("generation completed")

	if !opts.publish {
		fmt.Println(result.ImageURL)
		return nil
	}

	post, err := api.CreateFromGeneration(ctx, dto.CreateFromGenerationRequest{
		RequestID:  started.RequestID,
		Caption:    opts.caption,
		Tags:       opts.tags,
		Visibility: opts.visibility,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"post_id":    post.ID,
		"visibility": post.Visibility,
	}).Info("post published")
	fmt.Println(post.MediaURL)
	return nil
}

func splitTags(raw string) []string {
	var out []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
