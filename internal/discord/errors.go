package discord

import "errors"

var (
	ErrNotReady        = errors.New("discord bot is not ready or closed")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotTextChannel  = errors.New("channel is not a text channel")
	ErrForbidden       = errors.New("missing permissions to read channel history")
)
