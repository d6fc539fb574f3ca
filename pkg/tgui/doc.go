// Package tgui builds Telegram inline keyboards for the bot's dialogues.
package tgui
