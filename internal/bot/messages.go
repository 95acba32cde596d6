package bot

import (
	"fmt"
	"time"

	"github.com/shopgenie/shopgenie/internal/output"
)

// Command replies. Rendered as HTML.
func startMessage(marketplace string) string {
	return fmt.Sprintf("🛍️ <b>Welcome to ShopGenie!</b>\n\n"+
		"I find products on %s and show you the top results with prices and ratings.\n\n"+
		"<b>How to search:</b> just send a product name.\n"+
		"<b>Example:</b> <code>bluetooth speaker</code>\n\n"+
		"Type /help for more information.\n\n"+
		"Let's start shopping! 🛒", output.Escape(marketplace))
}

func helpMessage(marketplace string, maxResults, maxRequests int, window string) string {
	return fmt.Sprintf("🤖 <b>ShopGenie Help</b>\n\n"+
		"<b>How to use:</b>\n"+
		"Send me any product name and I'll search %s for it.\n"+
		"I show up to %d results with price, rating and image.\n\n"+
		"<b>Examples:</b>\n"+
		"• <code>wireless headphones</code>\n"+
		"• <code>phone case</code>\n\n"+
		"<b>Limits:</b> %d searches per %s.\n\n"+
		"<b>Commands:</b>\n"+
		"/start - Start the bot\n"+
		"/help - Show this help message\n\n"+
		"🛍️ Happy shopping with ShopGenie!",
		output.Escape(marketplace), maxResults, maxRequests, output.Escape(window))
}

const unknownCommandMessage = "🤔 I don't understand that command.\n\n" +
	"Just send me a product name to search, or use /help for more information."

// humanWindow phrases a rate-limit window for "N searches per ...". Zero
// means the default one-minute window.
func humanWindow(d time.Duration) string {
	if d <= 0 {
		d = time.Minute
	}
	for _, unit := range []struct {
		size time.Duration
		name string
	}{
		{time.Hour, "hour"},
		{time.Minute, "minute"},
		{time.Second, "second"},
	} {
		if d%unit.size != 0 {
			continue
		}
		if n := int64(d / unit.size); n > 1 {
			return fmt.Sprintf("%d %ss", n, unit.name)
		}
		return unit.name
	}
	return d.String()
}
