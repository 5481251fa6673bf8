package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// gzipMinSize - ответы меньше этого размера не сжимаются
const gzipMinSize = 1400

// GzipMiddleware сжимает крупные JSON-ответы, если клиент поддерживает gzip
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Проверка, поддерживает ли клиент сжатие ответа
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		// Создаём кастомный ResponseWriter для сжатия ответа
		gw := &gzipResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer gw.Close()

		// Передаём управление следующему обработчику
		next.ServeHTTP(gw, r)
	})
}

// gzipResponseWriter откладывает отправку заголовков до первой записи,
// чтобы по типу и размеру содержимого решить, сжимать ли ответ
type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	statusCode  int
	wroteHeader bool
	decided     bool
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	// Запоминаем статус, отправим его вместе с решением о сжатии
	if w.wroteHeader {
		return
	}
	w.statusCode = statusCode
	w.wroteHeader = true
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	// Решаем по первой порции данных
	if !w.decided {
		w.decide(len(b))
	}

	// Пишем сжатые данные
	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *gzipResponseWriter) decide(size int) {
	w.decided = true

	// Проверяем Content-Type и размер ответа
	contentType := w.Header().Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") && size >= gzipMinSize {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")

		// Инициализируем gzip.Writer
		w.gz = gzip.NewWriter(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(w.statusCode)
}

// Close дописывает отложенный статус и закрывает gzip.Writer
func (w *gzipResponseWriter) Close() error {
	// Ответ без тела: отправляем только отложенный статус
	if !w.decided {
		w.decided = true
		if w.wroteHeader {
			w.ResponseWriter.WriteHeader(w.statusCode)
		}
	}
	if w.gz != nil {
		return w.gz.Close()
	}
	return nil
}
