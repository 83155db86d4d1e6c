package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"leafdoctor/internal/logger"
)

// ShowLogsHandler serves the log file of one level as text/plain.
func ShowLogsHandler(l *logger.Logger, level string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, l, http.MethodGet) {
			return
		}
		serveLogFile(w, r, l.Dir(), logger.FileName(level))
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates the log file of one level.
func ClearLogsHandler(l *logger.Logger, level string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, l, http.MethodPost) {
			return
		}
		if err := l.CleanLogs(level); err != nil {
			l.Error("Failed to clear %s logs: %v", level, err)
			respondError(w, l, http.StatusInternalServerError, "failed to clear logs")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
