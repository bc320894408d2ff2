package consensus

import (
	"log/slog"
	"sort"

	"github.com/tagquorum/tagquorum/internal/escape"
	"github.com/tagquorum/tagquorum/internal/model"
)

// Default agreement settings. These match the values the annotation
// platform has used in production; hosts override them per task via
// configuration.
const (
	// DefaultMinimumRedundancy is the number of independent task attempts
	// an annotation needs before it is trusted at all. Annotations from
	// thinner task runs are discarded before aggregation.
	DefaultMinimumRedundancy = 3

	// DefaultPassThreshold is the minimum distinct-contributor agreement
	// count for a position to count toward consensus.
	DefaultPassThreshold = 2
)

// Settings holds the agreement knobs for one Processor.
type Settings struct {
	// MinimumRedundancy discards annotations whose taskrun_count is
	// below it. Zero means DefaultMinimumRedundancy.
	MinimumRedundancy int

	// PassThreshold is the agreement count a position must reach.
	// Zero means DefaultPassThreshold.
	PassThreshold int
}

// normalize fills zero fields with defaults.
func (s Settings) normalize() Settings {
	if s.MinimumRedundancy == 0 {
		s.MinimumRedundancy = DefaultMinimumRedundancy
	}
	if s.PassThreshold == 0 {
		s.PassThreshold = DefaultPassThreshold
	}
	return s
}

// Processor orchestrates consensus computation for a single task.
// It owns one ArticleMap and one TopicAggregate per topic name, ingests a
// complete annotation batch via Consider, and extracts consensus rows on
// demand. Extraction is read-only and may be invoked repeatedly.
//
// A Processor holds no external resources and is not safe for concurrent
// use; hosts that parallelize across tasks create one Processor per task.
type Processor struct {
	taskUUID string
	settings Settings
	article  *ArticleMap
	topics   map[string]*TopicAggregate
	logger   *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets a custom logger for ingestion diagnostics.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor for one task with the given settings.
// Zero-valued settings fields fall back to the package defaults.
func NewProcessor(taskUUID string, settings Settings, opts ...ProcessorOption) *Processor {
	p := &Processor{
		taskUUID: taskUUID,
		settings: settings.normalize(),
		article:  NewArticleMap(),
		topics:   make(map[string]*TopicAggregate),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Consider ingests a batch of annotations. Records whose taskrun_count is
// below the minimum redundancy are dropped entirely: neither their text
// enters the article map nor their positions any contributor's set. The
// filter is per-annotation, not per-topic or per-article.
//
// Returns the number of dropped annotations, or an error wrapping
// ErrIntegrity if the batch contradicts itself, in which case ingestion
// stops at the offending record.
func (p *Processor) Consider(batch []model.Annotation) (dropped int, err error) {
	for i := range batch {
		anno := &batch[i]

		if anno.TaskrunCount < p.settings.MinimumRedundancy {
			p.logger.Debug("dropping annotation below minimum redundancy",
				"topic", anno.TopicName,
				"taskrun_count", anno.TaskrunCount,
				"minimum_redundancy", p.settings.MinimumRedundancy,
			)
			dropped++
			continue
		}

		if err := p.article.Consider(anno); err != nil {
			return dropped, err
		}

		topic, ok := p.topics[anno.TopicName]
		if !ok {
			topic = NewTopicAggregate()
			p.topics[anno.TopicName] = topic
		}
		if err := topic.Consider(anno); err != nil {
			return dropped, err
		}
	}

	return dropped, nil
}

// Consensus extracts the agreed highlight ranges for every topic: positions
// whose agreement count reaches the pass threshold, merged into maximal
// contiguous ranges, with text reconstructed from the article map and case
// numbers assigned sequentially per topic. Topics with no passing range
// contribute nothing.
//
// Topics are processed in sorted name order so output is deterministic
// regardless of ingestion order.
func (p *Processor) Consensus() ([]model.ConsensusRow, error) {
	rows := []model.ConsensusRow{}
	for _, name := range p.topicNames() {
		topic := p.topics[name]

		ranges := topic.Consensus(p.passing())
		topicRows, err := p.finishRows(topic, ranges)
		if err != nil {
			return nil, err
		}
		rows = append(rows, topicRows...)
	}
	return rows, nil
}

// AnswerConsensus behaves like Consensus with one addition: a topic that
// produced zero passing ranges but was chosen by at least pass-threshold
// contributors yields a single zero-length placeholder range instead of
// nothing. This serves answer types that do not require (or do not allow)
// highlighted evidence. Every emitted row carries the topic's total
// contributor count in its extra field.
func (p *Processor) AnswerConsensus() ([]model.ConsensusRow, error) {
	rows := []model.ConsensusRow{}
	for _, name := range p.topicNames() {
		topic := p.topics[name]

		ranges := topic.Consensus(p.passing())
		contribCount := topic.ContributorCount()
		if len(ranges) == 0 && contribCount >= p.settings.PassThreshold {
			ranges = []model.Range{{StartPos: 0, EndPos: 0}}
		}

		topicRows, err := p.finishRows(topic, ranges)
		if err != nil {
			return nil, err
		}
		for i := range topicRows {
			topicRows[i].Extra = &model.RowExtra{ContribCount: contribCount}
		}
		rows = append(rows, topicRows...)
	}
	return rows, nil
}

// passing builds the position predicate from the configured threshold.
func (p *Processor) passing() func(pos, count int) bool {
	threshold := p.settings.PassThreshold
	return func(_, count int) bool {
		return count >= threshold
	}
}

// finishRows reconstructs text for each range, assigns case numbers, and
// stamps article and task identity.
func (p *Processor) finishRows(topic *TopicAggregate, ranges []model.Range) ([]model.ConsensusRow, error) {
	rows := topic.DetermineCases(ranges)
	for i := range rows {
		text, err := p.article.Text(rows[i].StartPos, rows[i].EndPos)
		if err != nil {
			return nil, err
		}
		rows[i].TargetText = escape.Encode(text)
		p.article.ApplyIdentity(&rows[i])
		rows[i].TaskUUID = p.taskUUID
	}
	return rows, nil
}

// topicNames returns topic names in sorted order.
func (p *Processor) topicNames() []string {
	names := make([]string, 0, len(p.topics))
	for name := range p.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Article exposes the processor's article map for identity stamping and
// diagnostics.
func (p *Processor) Article() *ArticleMap {
	return p.article
}

// TopicCount returns the number of distinct topics that survived the
// redundancy filter.
func (p *Processor) TopicCount() int {
	return len(p.topics)
}

// Topic returns the aggregate for a topic name, or nil if the topic was
// never seen.
func (p *Processor) Topic(name string) *TopicAggregate {
	return p.topics[name]
}

// Settings returns the processor's normalized settings.
func (p *Processor) Settings() Settings {
	return p.settings
}
