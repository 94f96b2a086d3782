package pipeline

import (
	"fmt"

	"github.com/tanq16/tgytdl/internal/utils"
)

const (
	MsgSizeUnknown = "Unable to determine video size."
	MsgStarting    = "Starting download..."
	MsgSent        = "Video sent successfully."
	failurePrefix  = "Failed to download video: "
)

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("Video is too large to send. Maximum size is %d MB.", limit/utils.MiB)
}

func failureMessage(err error) string {
	return failurePrefix + err.Error()
}
