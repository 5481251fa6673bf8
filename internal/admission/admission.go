// Package admission реализует ограничение частоты запросов по скользящему окну (sliding-window log).
//
// Для каждой идентичности вызывающего хранится упорядоченный список моментов допущенных
// запросов за последнее окно. Устаревшие записи удаляются перед каждой проверкой.
// Состояние живёт только в памяти процесса.
package admission

import (
	"math"
	"sync"
	"time"
)

// DefaultWindow - размер окна по умолчанию
const DefaultWindow = 60 * time.Second

// Tier описывает потолок запросов за окно для класса вызывающих
type Tier struct {
	Name string
	Max  int
}

// Decision - результат проверки допуска
type Decision struct {
	Allowed bool
	// RetryAfter - через сколько целых секунд стоит повторить запрос; 0 при допуске
	RetryAfter int
	// Remaining - сколько запросов ещё допустимо в текущем окне
	Remaining int
}

// Controller хранит окна всех идентичностей
type Controller struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string][]time.Time
}

// NewController создаёт контроллер с заданным размером окна
func NewController(window time.Duration) *Controller {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Controller{
		window:  window,
		entries: make(map[string][]time.Time),
	}
}

// Window возвращает размер окна
func (c *Controller) Window() time.Duration {
	return c.window
}

// Admit решает, допустить ли запрос identity в момент now по лимиту tier.
// Допущенный запрос сразу занимает место в окне.
func (c *Controller) Admit(identity string, tier Tier, now time.Time) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	timestamps := prune(c.entries[identity], now, c.window)

	if len(timestamps) >= tier.Max {
		c.entries[identity] = timestamps
		if len(timestamps) == 0 {
			// Нулевой лимит: повторять имеет смысл не раньше, чем через окно
			return Decision{Allowed: false, RetryAfter: ceilSeconds(c.window)}
		}
		remaining := c.window - now.Sub(oldest(timestamps))
		return Decision{Allowed: false, RetryAfter: ceilSeconds(remaining)}
	}

	c.entries[identity] = append(timestamps, now)
	return Decision{Allowed: true, Remaining: tier.Max - len(timestamps) - 1}
}

// Len возвращает число записей в окне identity без очистки
func (c *Controller) Len(identity string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries[identity])
}

// Reset сбрасывает состояние всех окон
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]time.Time)
}

// prune отбрасывает записи, для которых now - ts >= window. Порядок сохраняется.
// Конкурентные вызовы могут прийти с немонотонными now, поэтому проверяется каждая запись.
func prune(timestamps []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := timestamps[:0:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	return kept
}

func oldest(timestamps []time.Time) time.Time {
	first := timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts.Before(first) {
			first = ts
		}
	}
	return first
}

func ceilSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
