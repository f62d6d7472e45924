package cache

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-avatar/core/texttospeech/cache"

var logger = otelslog.NewLogger(scopeName)
