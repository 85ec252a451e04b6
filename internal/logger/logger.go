// Package logger предоставляет логирование с префиксом компонента и асинхронной записью,
// чтобы сетевые вызовы клиента и обработчики dev-бэкенда не блокировались на выводе.
// Поддерживается логирование времени выполнения запросов.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const asyncBufferSize = 8192

var (
	prefix   string
	logLevel = levelInfo
	ch       chan string
	once     sync.Once
	pending  sync.WaitGroup

	outMu sync.Mutex
	out   = log.New(os.Stderr, "", log.LstdFlags)
)

type level int

const (
	levelDebug level = iota
	levelInfo
)

func initLevel() {
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "trace":
		logLevel = levelDebug
	default:
		logLevel = levelInfo
	}
}

func initWorker() {
	initLevel()
	ch = make(chan string, asyncBufferSize)
	go func() {
		for msg := range ch {
			outMu.Lock()
			out.Print(msg)
			outMu.Unlock()
			pending.Done()
		}
	}()
}

func enqueue(msg string) {
	once.Do(initWorker)
	pending.Add(1)
	select {
	case ch <- msg:
	default:
		// Буфер полон — не блокируем, теряем лог
		pending.Done()
	}
}

// SetPrefix задаёт префикс для всех последующих логов (например "cli", "devapi").
func SetPrefix(p string) {
	prefix = p
}

// SetOutput перенаправляет вывод (CLI пишет в stderr, тесты в буфер).
func SetOutput(w io.Writer) {
	outMu.Lock()
	out.SetOutput(w)
	outMu.Unlock()
}

// SetLevel переопределяет уровень из LOG_LEVEL (значение из конфигурации).
func SetLevel(l string) {
	once.Do(initWorker)
	switch l {
	case "debug", "trace":
		logLevel = levelDebug
	case "":
	default:
		logLevel = levelInfo
	}
}

// Flush ждёт, пока все поставленные в очередь сообщения будут записаны.
// Вызывается перед os.Exit в CLI.
func Flush() {
	pending.Wait()
}

func tag() string {
	if prefix == "" {
		return ""
	}
	return "[" + prefix + "] "
}

// Info пишет в log с префиксом (асинхронно).
func Info(v ...any) {
	enqueue(tag() + fmt.Sprint(v...))
}

// Infof форматирует и пишет с префиксом (асинхронно).
func Infof(format string, v ...any) {
	enqueue(tag() + fmt.Sprintf(format, v...))
}

// Debugf пишет только при LOG_LEVEL=debug.
func Debugf(format string, v ...any) {
	once.Do(initWorker)
	if logLevel != levelDebug {
		return
	}
	enqueue(tag() + "DEBUG: " + fmt.Sprintf(format, v...))
}

// Warnf — восстановимые ситуации (например, mark_as_read не прошёл, локальный счётчик уже сброшен).
func Warnf(format string, v ...any) {
	enqueue(tag() + "WARN: " + fmt.Sprintf(format, v...))
}

// Error пишет ошибку с префиксом (асинхронно).
func Error(v ...any) {
	enqueue(tag() + "ERROR: " + fmt.Sprint(v...))
}

// Errorf форматирует ошибку с префиксом (асинхронно).
func Errorf(format string, v ...any) {
	enqueue(tag() + "ERROR: " + fmt.Sprintf(format, v...))
}

// LogDuration логирует имя операции и время выполнения в миллисекундах (асинхронно).
// При LOG_LEVEL=info логирует только вызовы дольше 300ms; при LOG_LEVEL=debug — все.
func LogDuration(fn string, start time.Time) {
	once.Do(initWorker)
	elapsed := time.Since(start)
	if logLevel == levelDebug || elapsed >= 300*time.Millisecond {
		enqueue(fmt.Sprintf("%sfn=%s duration_ms=%d", tag(), fn, elapsed.Milliseconds()))
	}
}

// DeferLogDuration возвращает функцию для вызова в defer: defer logger.DeferLogDuration("api.Contacts", time.Now())().
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}

// MaskSecret маскирует токен или ключ устройства в логах (первые 4 символа).
func MaskSecret(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return "****"
	}
	return string(r[:4]) + "***"
}
