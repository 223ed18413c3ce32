package page

import (
	gosync "sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/notify"
)

// Class names and attributes of the rendered dropdown markup.
const (
	ClassItem        = "notification-item"
	ClassMarkRead    = "mark-read-btn"
	ClassEmpty       = "notification-empty"
	ClassToast       = "toast"
	AttrNotification = "data-notification-id"

	EmptyText = "No notifications yet"
)

// pulseDuration matches the badge animation length.
const pulseDuration = time.Second

// Surface renders notifications into a Document following the laundry web
// application's dropdown markup.
type Surface struct {
	doc      *Document
	elements model.SurfaceConfig
	toastTTL time.Duration

	mu       gosync.Mutex
	onChange func(*Document)

	// pulseGen is only touched inside doc.Mutate. A pulse timer clears the
	// animation only if no newer pulse started since.
	pulseGen int
}

var _ notify.Surface = (*Surface)(nil)

// NewSurface binds a surface to doc. toastTTL <= 0 keeps toasts forever,
// which is what tests usually want.
func NewSurface(doc *Document, elements model.SurfaceConfig, toastTTL time.Duration) *Surface {
	return &Surface{doc: doc, elements: elements, toastTTL: toastTTL}
}

// Document returns the page the surface renders into.
func (s *Surface) Document() *Document {
	return s.doc
}

// OnChange registers fn to run after every mutation of the page.
func (s *Surface) OnChange(fn func(*Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Surface) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(s.doc)
	}
}

// ShowNotifications replaces the children of the list container.
func (s *Surface) ShowNotifications(rows []notify.Row) {
	s.doc.Mutate(func(root *html.Node) {
		list := findByID(root, s.elements.ListID)
		if list == nil {
			return
		}
		removeChildren(list)

		if len(rows) == 0 {
			list.AppendChild(emptyState())
			return
		}
		for _, r := range rows {
			list.AppendChild(rowNode(r))
		}
	})
	s.changed()
}

func emptyState() *html.Node {
	return el("div", []string{"class", "text-center py-4 text-muted " + ClassEmpty},
		el("i", []string{"class", "fas fa-bell-slash fa-2x mb-2"}),
		el("p", []string{"class", "mb-0"}, text(EmptyText)),
	)
}

func rowNode(r notify.Row) *html.Node {
	state := "read"
	if r.Unread {
		state = "unread"
	}
	id := r.ID.String()

	body := el("div", []string{"class", "d-flex align-items-start"},
		el("div", []string{"class", "notification-icon me-3"},
			el("i", []string{"class", "fas fa-info-circle text-primary"}),
		),
		el("div", []string{"class", "flex-grow-1"},
			el("p", []string{"class", "mb-1 notification-message"}, text(r.Message)),
			el("small", []string{"class", "text-muted notification-time"}, text(r.TimeAgo)),
		),
	)
	if r.CanMarkRead() {
		body.AppendChild(el("button", []string{
			"class", "btn btn-sm btn-outline-primary " + ClassMarkRead,
			AttrNotification, id,
			"title", "Mark as read",
		}, el("i", []string{"class", "fas fa-check"})))
	}

	return el("div", []string{
		"class", "dropdown-item " + ClassItem + " " + state,
		AttrNotification, id,
	}, body)
}

// ShowBadge updates the dropdown badge and its mirror in the navigation bar.
func (s *Surface) ShowBadge(b notify.Badge) {
	var pulsed []*html.Node
	var gen int

	s.doc.Mutate(func(root *html.Node) {
		for _, id := range []string{s.elements.BadgeID, s.elements.NavBadgeID} {
			if id == "" {
				continue
			}
			badge := findByID(root, id)
			if badge == nil {
				continue
			}

			if !b.Visible {
				setStyleProp(badge, "display", "none")
				continue
			}
			setText(badge, b.Text)
			setStyleProp(badge, "display", "block")
			if b.Pulse {
				setStyleProp(badge, "animation", "pulse 1s ease-in-out")
				pulsed = append(pulsed, badge)
			}
		}
		if len(pulsed) > 0 {
			s.pulseGen++
			gen = s.pulseGen
		}
	})
	s.changed()

	if len(pulsed) > 0 {
		time.AfterFunc(pulseDuration, func() { s.endPulse(gen, pulsed) })
	}
}

func (s *Surface) endPulse(gen int, pulsed []*html.Node) {
	cleared := false
	s.doc.Mutate(func(*html.Node) {
		if gen != s.pulseGen {
			return
		}
		for _, n := range pulsed {
			setStyleProp(n, "animation", "")
		}
		cleared = true
	})
	if cleared {
		s.changed()
	}
}

// ShowToast appends a toast to the toast container, creating the container
// if the page has none, and removes it again after the toast TTL.
func (s *Surface) ShowToast(t notify.Toast) {
	bg, icon := "bg-success", "fa-check"
	if t.Kind == notify.ToastError {
		bg, icon = "bg-danger", "fa-exclamation-triangle"
	}

	toast := el("div", []string{
		"class", ClassToast + " align-items-center text-white " + bg + " border-0",
		"role", "alert",
		"data-toast-kind", t.Kind.String(),
	},
		el("div", []string{"class", "d-flex"},
			el("div", []string{"class", "toast-body"},
				el("i", []string{"class", "fas " + icon + " me-2"}),
				text(t.Message),
			),
		),
	)

	s.doc.Mutate(func(root *html.Node) {
		container := findByClass(root, s.elements.ToastContainer)
		if container == nil {
			container = el("div", []string{
				"class", s.elements.ToastContainer + " position-fixed top-0 end-0 p-3",
			})
			parent := findTag(root, atom.Body)
			if parent == nil {
				parent = root
			}
			parent.AppendChild(container)
		}
		container.AppendChild(toast)
	})
	s.changed()

	if s.toastTTL > 0 {
		time.AfterFunc(s.toastTTL, func() {
			s.doc.Mutate(func(*html.Node) {
				if toast.Parent != nil {
					toast.Parent.RemoveChild(toast)
				}
			})
			s.changed()
		})
	}
}
