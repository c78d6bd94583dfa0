package annotation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lewtec/apontador/internal/coords"
	"github.com/lewtec/apontador/internal/domain"
	"github.com/lewtec/apontador/internal/session"
)

// MaxImportSize bounds the size of an uploaded CSV
const MaxImportSize = 8 << 20

type flash struct {
	ID    string
	Data  any
	Error bool
}

type AnnotatorApp struct {
	Config       *Config
	Items        *domain.ItemSet
	Storage      *Storage
	Translations *Translations
	Templates    *Templates
	Cache        *ImageCache

	style MarkerStyle

	mu       sync.Mutex
	sessions map[string]*session.Controller
	flashes  map[string]flash
}

// NewAnnotatorApp wires the web front end. The item set must not be empty.
func NewAnnotatorApp(config *Config, items *domain.ItemSet, storage *Storage) (*AnnotatorApp, error) {
	if items.Len() == 0 {
		return nil, domain.ErrEmptySet
	}
	translations, err := NewTranslations(config.Language)
	if err != nil {
		return nil, err
	}
	templates, err := NewTemplates()
	if err != nil {
		return nil, fmt.Errorf("while loading templates: %w", err)
	}
	style, err := MarkerStyleFromConfig(config.Display)
	if err != nil {
		return nil, fmt.Errorf("while parsing marker colours: %w", err)
	}
	return &AnnotatorApp{
		Config:       config,
		Items:        items,
		Storage:      storage,
		Translations: translations,
		Templates:    templates,
		Cache:        NewImageCache(ImageCacheSize),
		style:        style,
		sessions:     make(map[string]*session.Controller),
		flashes:      make(map[string]flash),
	}, nil
}

// Session returns the controller of a rater, creating it on first use
func (a *AnnotatorApp) Session(ctx context.Context, raterKey string) (*session.Controller, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.sessions[raterKey]; ok {
		return c, nil
	}
	c, err := session.New(a.Items, a.Storage.Repository)
	if err != nil {
		return nil, err
	}
	if err := c.SwitchRater(ctx, raterKey); err != nil {
		return nil, err
	}
	a.sessions[raterKey] = c
	return c, nil
}

func (a *AnnotatorApp) setFlash(raterKey string, f flash) {
	a.mu.Lock()
	a.flashes[raterKey] = f
	a.mu.Unlock()
}

func (a *AnnotatorApp) popFlash(raterKey string) (flash, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.flashes[raterKey]
	delete(a.flashes, raterKey)
	return f, ok
}

func (a *AnnotatorApp) GetHTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(HTTPLogger)
	r.Use(a.i18nMiddleware)

	r.Get("/", a.handleIndex)
	r.Get("/favicon.svg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		io.WriteString(w, GetFavicon())
	})
	r.Get("/static/style.css", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		io.WriteString(w, GetStylesheet())
	})
	r.Get("/asset/{item}", a.handleAsset)
	r.Get("/overlay/{item}", a.handleOverlay)

	r.Route("/rate/{rater}", func(r chi.Router) {
		r.Get("/", a.handleRate)
		r.Get("/export.csv", a.handleExport)
		r.Post("/click", a.handleClick)
		r.Post("/undo", a.handleUndo)
		r.Post("/reset", a.handleReset)
		r.Post("/next", a.action(func(c *session.Controller, r *http.Request) error { return c.Next() }))
		r.Post("/prev", a.action(func(c *session.Controller, r *http.Request) error { return c.Prev() }))
		r.Post("/jump", a.action(func(c *session.Controller, r *http.Request) error {
			index, err := strconv.Atoi(r.FormValue("index"))
			if err != nil {
				return nil
			}
			return c.Jump(index - 1)
		}))
		r.Post("/import", a.handleImport)
	})

	log.Printf("images dir: %s", a.Config.ImagesDir())
	return r
}

type displaySettings struct {
	Width  int
	Radius int
}

func (a *AnnotatorApp) displaySettings(r *http.Request) displaySettings {
	s := displaySettings{Width: a.Config.Display.Width, Radius: a.Config.Display.Radius}
	if w, err := strconv.Atoi(r.URL.Query().Get("w")); err == nil {
		s.Width = min(max(w, MinDisplayWidth), MaxDisplayWidth)
	}
	if radius, err := strconv.Atoi(r.URL.Query().Get("r")); err == nil {
		s.Radius = min(max(radius, MinRadius), MaxRadius)
	}
	return s
}

func (s displaySettings) query() string {
	v := url.Values{}
	v.Set("w", strconv.Itoa(s.Width))
	v.Set("r", strconv.Itoa(s.Radius))
	return v.Encode()
}

func (a *AnnotatorApp) pageData(r *http.Request, title string) map[string]any {
	localizer := LocalizerFromContext(r.Context())
	return map[string]any{
		"Title": title,
		"Lang":  a.Config.Language,
		"T": func(messageID string, data ...any) string {
			if len(data) > 0 {
				return Localize(localizer, messageID, data[0])
			}
			return Localize(localizer, messageID, nil)
		},
	}
}

func (a *AnnotatorApp) render(w http.ResponseWriter, status int, page string, data map[string]any) {
	var buf bytes.Buffer
	if err := a.Templates.RenderPage(&buf, page, data); err != nil {
		log.Printf("error: http: while rendering page '%s': %s", page, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

type raterEntry struct {
	Key      string
	Name     string
	Progress string
}

func (a *AnnotatorApp) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := a.pageData(r, Localize(LocalizerFromContext(r.Context()), "AppTitle", nil))
	status := http.StatusOK
	if alias := r.URL.Query().Get("user"); alias != "" {
		if key, ok := a.Config.ResolveRater(alias); ok {
			http.Redirect(w, r, "/rate/"+key, http.StatusSeeOther)
			return
		}
		data["Flash"] = Localize(LocalizerFromContext(r.Context()), "UnknownRater", map[string]any{"Alias": alias})
		data["FlashError"] = true
		status = http.StatusNotFound
	}
	var raters []raterEntry
	for _, key := range a.Config.RaterKeys() {
		entry := raterEntry{Key: key, Name: a.Config.Raters[key].Name}
		a.mu.Lock()
		c, ok := a.sessions[key]
		a.mu.Unlock()
		if ok {
			p := c.Progress()
			entry.Progress = fmt.Sprintf("%d / %d", p.Done, p.Total)
		}
		raters = append(raters, entry)
	}
	data["Raters"] = raters
	data["Description"] = a.Config.Meta.Description
	a.render(w, status, "index", data)
}

// rater resolves the {rater} URL parameter. Aliases redirect to the canonical key.
func (a *AnnotatorApp) rater(w http.ResponseWriter, r *http.Request) (string, *session.Controller, bool) {
	param := chi.URLParam(r, "rater")
	key, ok := a.Config.ResolveRater(param)
	if !ok {
		http.NotFoundHandler().ServeHTTP(w, r)
		return "", nil, false
	}
	if key != param && r.Method == http.MethodGet {
		target := strings.Replace(r.URL.Path, "/rate/"+param, "/rate/"+key, 1)
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return "", nil, false
	}
	c, err := a.Session(r.Context(), key)
	if err != nil {
		log.Printf("error: http: while opening session of rater '%s': %s", key, err)
		http.Error(w, "could not load annotations", http.StatusInternalServerError)
		return "", nil, false
	}
	return key, c, true
}

func (a *AnnotatorApp) redirectToRate(w http.ResponseWriter, r *http.Request, key string) {
	http.Redirect(w, r, "/rate/"+key+"?"+a.displaySettings(r).query(), http.StatusSeeOther)
}

func (a *AnnotatorApp) handleRate(w http.ResponseWriter, r *http.Request) {
	key, c, ok := a.rater(w, r)
	if !ok {
		return
	}
	settings := a.displaySettings(r)
	item, idx, err := c.Current()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	progress := c.Progress()

	data := a.pageData(r, fmt.Sprintf("%s - %s", item.ID, a.Config.Raters[key].Name))
	data["Rater"] = key
	data["RaterName"] = a.Config.Raters[key].Name
	data["Item"] = item
	data["Index"] = idx + 1
	data["Progress"] = progress
	data["AllDone"] = progress.Remaining == 0
	data["Current"] = map[string]any{"Name": item.ID, "Width": item.Width, "Height": item.Height}
	data["Position"] = map[string]any{"Index": idx + 1, "Total": progress.Total}
	data["Width"] = settings.Width
	data["Height"] = coords.DisplayHeight(settings.Width, item.Width, item.Height)
	data["Radius"] = settings.Radius
	data["MinWidth"], data["MaxWidth"] = MinDisplayWidth, MaxDisplayWidth
	data["MinRadius"], data["MaxRadius"] = MinRadius, MaxRadius
	if ann, ok := c.Lookup(item.ID); ok {
		data["Annotated"] = true
		data["Annotation"] = ann
	}
	if f, ok := a.popFlash(key); ok {
		data["Flash"] = Localize(LocalizerFromContext(r.Context()), f.ID, f.Data)
		data["FlashError"] = f.Error
	}
	a.render(w, http.StatusOK, "rate", data)
}

func formFloat(r *http.Request, name string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(r.FormValue(name)), 64)
}

func (a *AnnotatorApp) handleClick(w http.ResponseWriter, r *http.Request) {
	key, c, ok := a.rater(w, r)
	if !ok {
		return
	}
	x, errX := formFloat(r, "pt.x")
	y, errY := formFloat(r, "pt.y")
	if errX != nil || errY != nil {
		http.Error(w, "missing click coordinates", http.StatusBadRequest)
		return
	}
	ev := domain.ClickEvent{X: x, Y: y}
	// a missing displayed size falls back to source scale in the mapper
	ev.DisplayedWidth, _ = formFloat(r, "dw")
	ev.DisplayedHeight, _ = formFloat(r, "dh")

	// clicks land on the item the page was rendered for
	item, sx, sy, err := c.SubmitClickFor(r.Context(), r.FormValue("item"), ev)
	switch {
	case errors.Is(err, session.ErrUnknownItem):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		log.Printf("error: http: while saving click of rater '%s': %s", key, err)
		a.setFlash(key, flash{ID: "SaveFailed", Data: map[string]any{"Error": err.Error()}, Error: true})
	default:
		a.setFlash(key, flash{ID: "Saved", Data: map[string]any{"Name": item.ID, "X": sx, "Y": sy}})
	}
	a.redirectToRate(w, r, key)
}

func (a *AnnotatorApp) handleUndo(w http.ResponseWriter, r *http.Request) {
	key, c, ok := a.rater(w, r)
	if !ok {
		return
	}
	ann, undone, err := c.Undo(r.Context())
	switch {
	case err != nil:
		log.Printf("error: http: while undoing for rater '%s': %s", key, err)
		a.setFlash(key, flash{ID: "SaveFailed", Data: map[string]any{"Error": err.Error()}, Error: true})
	case !undone:
		a.setFlash(key, flash{ID: "NothingToUndo"})
	default:
		a.setFlash(key, flash{ID: "Undone", Data: map[string]any{"Name": ann.ItemID}})
	}
	a.redirectToRate(w, r, key)
}

func (a *AnnotatorApp) handleReset(w http.ResponseWriter, r *http.Request) {
	key, c, ok := a.rater(w, r)
	if !ok {
		return
	}
	if r.FormValue("confirm") != "yes" {
		http.Error(w, "reset needs confirmation", http.StatusBadRequest)
		return
	}
	if err := c.Reset(r.Context()); err != nil {
		log.Printf("error: http: while resetting rater '%s': %s", key, err)
		a.setFlash(key, flash{ID: "SaveFailed", Data: map[string]any{"Error": err.Error()}, Error: true})
	} else {
		a.setFlash(key, flash{ID: "ResetDone", Data: map[string]any{"Rater": a.Config.Raters[key].Name}})
	}
	a.redirectToRate(w, r, key)
}

func (a *AnnotatorApp) action(fn func(c *session.Controller, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, c, ok := a.rater(w, r)
		if !ok {
			return
		}
		if err := fn(c, r); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		a.redirectToRate(w, r, key)
	}
}

func (a *AnnotatorApp) handleImport(w http.ResponseWriter, r *http.Request) {
	key, c, ok := a.rater(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxImportSize)
	if err := r.ParseMultipartForm(MaxImportSize); err != nil {
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "could not read upload", http.StatusBadRequest)
		return
	}
	result, err := c.ImportCSV(r.Context(), data)
	if err != nil {
		log.Printf("error: http: while importing csv for rater '%s': %s", key, err)
		a.setFlash(key, flash{ID: "ImportFailed", Data: map[string]any{"Error": err.Error()}, Error: true})
	} else {
		if result.Errors != nil {
			log.Printf("http: import for rater '%s' skipped rows: %s", key, result.Errors)
		}
		a.setFlash(key, flash{ID: "Imported", Data: map[string]any{"Merged": result.Merged, "Skipped": result.Skipped}})
	}
	a.redirectToRate(w, r, key)
}

func (a *AnnotatorApp) handleExport(w http.ResponseWriter, r *http.Request) {
	key, c, ok := a.rater(w, r)
	if !ok {
		return
	}
	data, err := c.ExportCSV()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="clicks_%s.csv"`, key))
	w.Write(data)
}

func (a *AnnotatorApp) handleAsset(w http.ResponseWriter, r *http.Request) {
	item, ok := a.Items.Get(chi.URLParam(r, "item"))
	if !ok {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	settings := a.displaySettings(r)

	var mark *image.Point
	markKey := "-"
	if raterKey, ok := a.Config.ResolveRater(r.URL.Query().Get("rater")); ok {
		c, err := a.Session(r.Context(), raterKey)
		if err == nil {
			if ann, ok := c.Lookup(item.ID); ok {
				mark = &image.Point{X: ann.X, Y: ann.Y}
				markKey = mark.String()
			}
		}
	}

	hash, err := a.Cache.Hash(item.SourcePath)
	if err != nil {
		a.assetError(w, r, item, err)
		return
	}
	etag := ETag(hash, settings.Width, settings.Radius, markKey)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	img, err := a.Cache.Load(item.SourcePath)
	if err != nil {
		a.assetError(w, r, item, err)
		return
	}
	out := RenderDisplay(img, settings.Width, mark, settings.Radius, a.style)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		a.assetError(w, r, item, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	buf.WriteTo(w)
}

func (a *AnnotatorApp) assetError(w http.ResponseWriter, r *http.Request, item domain.Item, err error) {
	log.Printf("error: http: while serving image asset '%s': %s", item.ID, err)
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

func (a *AnnotatorApp) handleOverlay(w http.ResponseWriter, r *http.Request) {
	item, ok := a.Items.Get(chi.URLParam(r, "item"))
	if !ok || item.OverlayPath == "" {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	http.ServeFile(w, r, item.OverlayPath)
}
