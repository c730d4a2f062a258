// Package replacer turns a chat message holding an IMDb title link into a
// summary card that replaces it.
package replacer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/use-agent/filmcard/cache"
	"github.com/use-agent/filmcard/card"
	"github.com/use-agent/filmcard/engine"
	"github.com/use-agent/filmcard/models"
	"github.com/use-agent/filmcard/scraper"
	"github.com/use-agent/filmcard/trigger"
	"github.com/use-agent/filmcard/webhook"
)

// TriggerMessage is the part of an inbound chat message the replacer reads.
type TriggerMessage struct {
	ID        string
	ChannelID string
	Content   string
	Author    models.Author
}

// Opener loads a title page. *scraper.Scraper satisfies it.
type Opener interface {
	Open(ctx context.Context, url string) (engine.PageHandle, error)
}

// Transport deletes and posts chat messages.
type Transport interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendCard(ctx context.Context, channelID string, card *discordgo.MessageEmbed) error
}

// ScrapeResult is the outcome of loading one title page.
type ScrapeResult struct {
	Fields       models.Fields
	CacheHit     bool
	NavigationMs int64
	ScrapeMs     int64
}

// Replacer runs the trigger → fetch → scrape → card → replace pipeline.
// It is safe for concurrent use; each call owns its page.
type Replacer struct {
	channelID string
	opener    Opener
	transport Transport
	fieldOpts scraper.FieldOptions
	cache     *cache.Cache // nil disables caching
	notifier  *webhook.Notifier

	inflight sync.WaitGroup
}

// Report is the webhook payload describing one replacement attempt.
type Report struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	CacheHit  bool   `json:"cache_hit,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// New creates a Replacer watching channelID. transport may be nil when the
// Replacer only serves Scrape calls.
func New(channelID string, opener Opener, transport Transport, fieldOpts scraper.FieldOptions, c *cache.Cache) *Replacer {
	return &Replacer{
		channelID: channelID,
		opener:    opener,
		transport: transport,
		fieldOpts: fieldOpts,
		cache:     c,
	}
}

// SetNotifier reports every replacement outcome to n. Call before the
// Replacer starts handling messages.
func (r *Replacer) SetNotifier(n *webhook.Notifier) {
	r.notifier = n
}

// Handle processes msg and logs any failure. Nothing is ever reported back
// to the channel.
func (r *Replacer) Handle(ctx context.Context, msg TriggerMessage) {
	r.inflight.Add(1)
	defer r.inflight.Done()
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic while replacing title link",
				"channel", msg.ChannelID,
				"message", msg.ID,
				"panic", p,
			)
			r.reportFailure(msg, models.ErrCodeInternal, fmt.Sprintf("panic: %v", p))
		}
	}()

	if err := r.Process(ctx, msg); err != nil {
		slog.Error("failed to replace title link",
			"channel", msg.ChannelID,
			"message", msg.ID,
			"error", err,
		)
		r.reportFailure(msg, models.AsScrapeError(err).Code, err.Error())
	}
}

// reportFailure sends a card.failed event for msg.
func (r *Replacer) reportFailure(msg TriggerMessage, code, errText string) {
	url, _ := trigger.FindTriggerURL(msg.Content)
	r.notifier.Notify(webhook.NewEvent(webhook.EventCardFailed, Report{
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		URL:       url,
		ErrorCode: code,
		Error:     errText,
	}))
}

// Wait blocks until every Handle call in progress has returned and their
// webhook deliveries have finished, or ctx ends.
func (r *Replacer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.notifier.Wait(ctx)
}

// Process replaces msg with a summary card if it is a trigger message in the
// watched channel. Messages that do not qualify return nil without touching
// the transport. The trigger message is deleted before the card is sent; a
// failed delete means no card is sent.
func (r *Replacer) Process(ctx context.Context, msg TriggerMessage) error {
	if msg.ChannelID != r.channelID || !trigger.IsTriggerURL(msg.Content) {
		return nil
	}
	url, ok := trigger.FindTriggerURL(msg.Content)
	if !ok {
		slog.Debug("trigger message without title URL token", "message", msg.ID)
		return nil
	}
	if r.transport == nil {
		return errors.New("replacer: no transport configured")
	}

	res, err := r.Scrape(ctx, url)
	if err != nil {
		return err
	}
	embed := card.Build(res.Fields, url, msg.Author)

	if err := r.transport.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		return models.NewScrapeError(models.ErrCodeDeleteFailed, "failed to delete trigger message", err)
	}
	if err := r.transport.SendCard(ctx, msg.ChannelID, embed); err != nil {
		return models.NewScrapeError(models.ErrCodeSendFailed, "trigger message deleted but card not sent", err)
	}

	slog.Info("title link replaced",
		"channel", msg.ChannelID,
		"url", url,
		"title", res.Fields.Title,
		"cacheHit", res.CacheHit,
		"navigationMs", res.NavigationMs,
		"scrapeMs", res.ScrapeMs,
	)
	r.notifier.Notify(webhook.NewEvent(webhook.EventCardReplaced, Report{
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		URL:       url,
		Title:     res.Fields.Title,
		CacheHit:  res.CacheHit,
	}))
	return nil
}

// Scrape returns the fields for a title page, from the cache when possible.
// The page is closed before Scrape returns.
func (r *Replacer) Scrape(ctx context.Context, url string) (*ScrapeResult, error) {
	var key string
	if r.cache != nil {
		key = cache.Key(url)
		if f, ok := r.cache.Get(key); ok {
			slog.Debug("field cache hit", "url", url)
			return &ScrapeResult{Fields: f, CacheHit: true}, nil
		}
	}

	navStart := time.Now()
	page, err := r.opener.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("failed to close page", "url", url, "error", closeErr)
		}
	}()
	navMs := time.Since(navStart).Milliseconds()

	scrapeStart := time.Now()
	fields := scraper.ScrapeFields(ctx, page, r.fieldOpts)
	scrapeMs := time.Since(scrapeStart).Milliseconds()

	// A page without a title is most likely a bot wall; do not pin it.
	if r.cache != nil && fields.Title != "" {
		r.cache.Set(key, fields)
	}

	return &ScrapeResult{
		Fields:       fields,
		NavigationMs: navMs,
		ScrapeMs:     scrapeMs,
	}, nil
}
