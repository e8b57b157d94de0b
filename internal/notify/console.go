package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/beholder/backend/internal/game"
	"github.com/charmbracelet/lipgloss"
)

// Console writes highlighted detection lines to the service's output. The
// color is dropped automatically when w is not a terminal.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	renderer *lipgloss.Renderer
	now      func() time.Time
}

func NewConsole(w io.Writer) *Console {
	return &Console{
		w:        w,
		renderer: lipgloss.NewRenderer(w),
		now:      time.Now,
	}
}

// Write prints msg in color c, stamped like the standard logger.
func (c *Console) Write(msg string, col game.Color) error {
	style := c.renderer.NewStyle().Foreground(lipgloss.Color(col.Hex()))
	line := c.now().Format("2006/01/02 15:04:05") + " " + style.Render(msg)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, line)
	return err
}
