package notify

import (
	"context"
	"log/slog"
	"sort"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"retrobot/internal/aggregate"
)

// DefaultBatchSize is the Discord limit on embeds per message.
const DefaultBatchSize = 10

// Sink delivers a batch of rendered payloads to one channel.
type Sink interface {
	SendEmbeds(ctx context.Context, channelID string, embeds []*discordgo.MessageEmbed) error
}

type Config struct {
	RatePerSec float64 // outbound message budget; defaults to 1
	BatchSize  int     // defaults to DefaultBatchSize
}

// Service turns ordered notification items into rendered, batched sends.
// Batches are independent delivery units: a failed batch is logged and the
// remaining batches are still attempted.
type Service struct {
	sink    Sink
	render  *Renderer
	log     *slog.Logger
	limiter *rate.Limiter

	batchSize int
}

func New(sink Sink, render *Renderer, cfg Config, log *slog.Logger) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	size := cfg.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Service{
		sink:      sink,
		render:    render,
		log:       log,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		batchSize: size,
	}
}

// SendItems merges, sorts, renders, and delivers one cycle's items to a
// channel. Items are ordered by their sort timestamp ascending; equal
// timestamps keep their current relative order.
func (s *Service) SendItems(ctx context.Context, channelID string, items []aggregate.Item) {
	if channelID == "" || len(items) == 0 {
		return
	}

	sorted := append([]aggregate.Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortTime.Before(sorted[j].SortTime)
	})

	embeds := make([]*discordgo.MessageEmbed, 0, len(sorted))
	for _, it := range sorted {
		embeds = append(embeds, s.render.Item(ctx, it))
	}
	s.SendEmbeds(ctx, channelID, embeds)
}

// SendEmbeds delivers pre-rendered embeds in order, batch by batch.
func (s *Service) SendEmbeds(ctx context.Context, channelID string, embeds []*discordgo.MessageEmbed) {
	if channelID == "" || len(embeds) == 0 {
		return
	}

	batches := Batch(embeds, s.batchSize)
	s.log.Info("sending notification batches",
		slog.String("channel", channelID), slog.Int("embeds", len(embeds)), slog.Int("batches", len(batches)))

	for i, b := range batches {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.sink.SendEmbeds(ctx, channelID, b); err != nil {
			s.log.Error("batch send failed",
				slog.String("channel", channelID), slog.Int("batch", i+1), slog.Any("err", err))
			continue
		}
	}
}

// Batch splits payloads into consecutive chunks of at most max, preserving
// relative order across and within chunks.
func Batch(embeds []*discordgo.MessageEmbed, max int) [][]*discordgo.MessageEmbed {
	if max <= 0 {
		max = DefaultBatchSize
	}
	var out [][]*discordgo.MessageEmbed
	for len(embeds) > 0 {
		n := max
		if len(embeds) < n {
			n = len(embeds)
		}
		out = append(out, embeds[:n])
		embeds = embeds[n:]
	}
	return out
}
