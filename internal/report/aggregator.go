package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/store"
)

// priorityOrder fixes the section order of a daily report: most urgent
// first, items still awaiting a decision last.
var priorityOrder = []domain.Priority{
	domain.PriorityUrgent,
	domain.PriorityHigh,
	domain.PriorityMedium,
	domain.PriorityLow,
}

// Section groups a report's items under one priority heading.
type Section struct {
	// Priority is nil for the trailing "awaiting prioritization" section.
	Priority *domain.Priority
	Items    []*domain.PrioritizationItem
}

// Title returns the human-readable heading for the section.
func (s Section) Title() string {
	if s.Priority == nil {
		return "Awaiting prioritization"
	}
	return strings.ToUpper(string(*s.Priority))
}

// View is an assembled daily report for one conversation.
type View struct {
	ConversationID int64
	Date           time.Time
	Sections       []Section
	TotalItems     int
	ExportedCount  int
	DiscardedCount int
}

// Empty reports whether the day produced no items at all.
func (v View) Empty() bool {
	return v.TotalItems == 0
}

// Aggregator assembles daily summaries from the item store.
type Aggregator struct {
	items  store.ItemStore
	logger *slog.Logger
}

// NewAggregator creates a report aggregator.
// It panics if any dependency is nil, as this represents a programming error.
func NewAggregator(items store.ItemStore, logger *slog.Logger) *Aggregator {
	// ALLOW-PANIC: constructor enforces non-nil dependencies.
	if items == nil {
		panic("report aggregator requires a non-nil item store")
	}
	if logger == nil {
		panic("report aggregator requires a non-nil logger")
	}

	return &Aggregator{
		items:  items,
		logger: logger.With(slog.String("component", "report_aggregator")),
	}
}

// BuildDailyReport assembles the report for a conversation's UTC calendar
// date. Discarded items are counted but excluded from the sections.
func (a *Aggregator) BuildDailyReport(ctx context.Context, conversationID int64, date time.Time) (*View, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	items, err := a.items.ListByCreatedDate(ctx, conversationID, day)
	if err != nil {
		return nil, fmt.Errorf("listing items for report: %w", err)
	}

	view := &View{
		ConversationID: conversationID,
		Date:           day,
		TotalItems:     len(items),
	}

	byPriority := make(map[domain.Priority][]*domain.PrioritizationItem)
	var unprioritized []*domain.PrioritizationItem

	for _, item := range items {
		switch item.State {
		case domain.ItemStateDiscarded:
			view.DiscardedCount++
			continue
		case domain.ItemStateExported:
			view.ExportedCount++
		}
		if item.Priority == nil {
			unprioritized = append(unprioritized, item)
			continue
		}
		byPriority[*item.Priority] = append(byPriority[*item.Priority], item)
	}

	for _, p := range priorityOrder {
		group := byPriority[p]
		if len(group) == 0 {
			continue
		}
		pr := p
		view.Sections = append(view.Sections, Section{Priority: &pr, Items: group})
	}
	if len(unprioritized) > 0 {
		view.Sections = append(view.Sections, Section{Items: unprioritized})
	}

	a.logger.Debug("daily report assembled",
		slog.Int64("conversation_id", conversationID),
		slog.Time("date", day),
		slog.Int("total_items", view.TotalItems))

	return view, nil
}

// Render produces the plain-text body of the report.
func (v View) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily task report for %s\n", v.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Conversation %d: %d item(s), %d exported, %d discarded\n",
		v.ConversationID, v.TotalItems, v.ExportedCount, v.DiscardedCount)

	if v.Empty() {
		b.WriteString("\nNo tasks were extracted today.\n")
		return b.String()
	}

	for _, section := range v.Sections {
		fmt.Fprintf(&b, "\n%s\n", section.Title())
		for _, item := range section.Items {
			marker := "-"
			if item.State == domain.ItemStateExported {
				marker = "✓"
			}
			fmt.Fprintf(&b, "%s %s\n", marker, item.TaskText)
		}
	}

	return b.String()
}
