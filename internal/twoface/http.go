package twoface

import (
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

const fallbackBody = `{"error":"ServerError: Internal server error"}`

type errBody struct {
	Error string `json:"error"`
}

// WriteHTTP отдаёт внешнюю половину ошибки клиенту, а внутреннюю - только в лог.
func WriteHTTP(w http.ResponseWriter, logger *slog.Logger, err error) {
	tf := From(err)
	if tf == nil {
		tf = Errorf("WriteHTTP called without an error")
	}
	if logger != nil {
		logger.Error("request failed",
			"cause", tf.External.Cause.String(),
			"status", tf.External.Cause.StatusCode(),
			"error", tf.Internal,
		)
	}

	body, marshalErr := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(errBody{Error: tf.Error()})
	if marshalErr != nil {
		if logger != nil {
			logger.Error("marshal error body", "error", marshalErr)
		}
		body = []byte(fallbackBody)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(tf.External.Cause.StatusCode())
	_, _ = w.Write(body)
}
