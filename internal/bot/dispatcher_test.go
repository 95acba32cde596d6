package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopgenie/shopgenie/internal/core"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    []core.OutboundPart
	chats   []int64
	typing  int
	failAt  int
	sendErr error
}

func (s *recordingSender) Send(ctx context.Context, chatID int64, part core.OutboundPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil && len(s.sent)+1 == s.failAt {
		return s.sendErr
	}
	s.sent = append(s.sent, part)
	s.chats = append(s.chats, chatID)
	return nil
}

func (s *recordingSender) Typing(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing++
	return nil
}

func (s *recordingSender) parts() []core.OutboundPart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.OutboundPart(nil), s.sent...)
}

type cannedSearch struct {
	mu      sync.Mutex
	parts   []core.OutboundPart
	users   []string
	queries []string
}

func (c *cannedSearch) HandleSearch(ctx context.Context, userID string, raw string) []core.OutboundPart {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, userID)
	c.queries = append(c.queries, raw)
	return c.parts
}

func TestDispatchSearchDeliversPartsInOrder(t *testing.T) {
	search := &cannedSearch{parts: []core.OutboundPart{
		{Text: "one", ParseMode: core.ParseModeHTML},
		{Text: "two", ParseMode: core.ParseModeHTML},
	}}
	sender := &recordingSender{}
	d := &Dispatcher{Search: search, Sender: sender}

	err := d.Dispatch(context.Background(), InboundMessage{ChatID: 10, UserID: "u1", Text: " usb cable "})
	require.NoError(t, err)

	assert.Equal(t, search.parts, sender.parts())
	assert.Equal(t, []int64{10, 10}, sender.chats)
	assert.Equal(t, 1, sender.typing)
	assert.Equal(t, []string{"u1"}, search.users)
	assert.Equal(t, []string{"usb cable"}, search.queries)
}

func TestDispatchEmptyTextSkipsTyping(t *testing.T) {
	search := &cannedSearch{parts: []core.OutboundPart{{Text: "notice"}}}
	sender := &recordingSender{}
	d := &Dispatcher{Search: search, Sender: sender}

	require.NoError(t, d.Dispatch(context.Background(), InboundMessage{ChatID: 1, UserID: "u", Text: "   "}))
	assert.Zero(t, sender.typing)
	assert.Len(t, sender.parts(), 1)
}

func TestDispatchCommands(t *testing.T) {
	cases := []struct {
		text     string
		contains string
		mode     string
	}{
		{"/start", "Welcome to ShopGenie", core.ParseModeHTML},
		{"/start@ShopGenieBot", "Welcome to ShopGenie", core.ParseModeHTML},
		{"/HELP", "ShopGenie Help", core.ParseModeHTML},
		{"/compare a b", "I don't understand that command", core.ParseModePlain},
		{"/", "I don't understand that command", core.ParseModePlain},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			search := &cannedSearch{}
			sender := &recordingSender{}
			d := &Dispatcher{Search: search, Sender: sender, Info: Info{Marketplace: "Market & Co"}}

			require.NoError(t, d.Dispatch(context.Background(), InboundMessage{ChatID: 3, UserID: "u", Text: tc.text}))
			parts := sender.parts()
			require.Len(t, parts, 1)
			assert.Contains(t, parts[0].Text, tc.contains)
			assert.Equal(t, tc.mode, parts[0].ParseMode)
			assert.Empty(t, search.queries)
		})
	}
}

func TestHelpEscapesMarketplaceAndShowsLimits(t *testing.T) {
	sender := &recordingSender{}
	d := &Dispatcher{
		Search: &cannedSearch{},
		Sender: sender,
		Info:   Info{Marketplace: "A<B>", MaxResults: 4, MaxRequests: 10, Window: time.Minute},
	}

	require.NoError(t, d.Dispatch(context.Background(), InboundMessage{ChatID: 3, Text: "/help"}))
	text := sender.parts()[0].Text
	assert.Contains(t, text, "A&lt;B&gt;")
	assert.Contains(t, text, "up to 4 results")
	assert.Contains(t, text, "10 searches per minute.")
}

func TestDispatchStopsAtFirstDeliveryFailure(t *testing.T) {
	search := &cannedSearch{parts: []core.OutboundPart{{Text: "1"}, {Text: "2"}, {Text: "3"}}}
	sender := &recordingSender{failAt: 2, sendErr: errors.New("chat not found")}
	d := &Dispatcher{Search: search, Sender: sender}

	err := d.Dispatch(context.Background(), InboundMessage{ChatID: 1, UserID: "u", Text: "lamp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 2 of 3")
	assert.Equal(t, []core.OutboundPart{{Text: "1"}}, sender.parts())
}

func TestDispatchUnconfigured(t *testing.T) {
	var d *Dispatcher
	require.Error(t, d.Dispatch(context.Background(), InboundMessage{Text: "x"}))
}

func TestParseCommand(t *testing.T) {
	name, ok := parseCommand("/start@bot extra")
	assert.True(t, ok)
	assert.Equal(t, "start", name)

	_, ok = parseCommand("lamp /start")
	assert.False(t, ok)
}

func TestHumanWindow(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "minute",
		time.Minute:             "minute",
		90 * time.Second:        "90 seconds",
		5 * time.Minute:         "5 minutes",
		time.Hour:               "hour",
		2 * time.Hour:           "2 hours",
		time.Second:             "second",
		1500 * time.Millisecond: "1.5s",
	}
	for window, want := range cases {
		assert.Equal(t, want, humanWindow(window), window.String())
	}
}
