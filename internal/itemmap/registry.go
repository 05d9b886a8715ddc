// Package itemmap maps item IDs, English names and localized names onto
// each other using Data Dragon item data.
package itemmap

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public Data Dragon host
const DefaultBaseURL = "https://ddragon.leagueoflegends.com"

// Item is one row of the map
type Item struct {
	ID      int      `json:"item_id"`
	English string   `json:"en_name"`
	Local   string   `json:"local_name"`
	Tags    []string `json:"tags,omitempty"`
	Version string   `json:"ddragon_version"`
}

type itemData struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Registry holds the item map for one language
type Registry struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	mu      sync.RWMutex
	items   map[int]Item
	byName  map[string]int
	version string
	lang    string
}

// NewRegistry creates an empty registry reading from baseURL
func NewRegistry(baseURL string, log zerolog.Logger) *Registry {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Registry{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
		items:   make(map[int]Item),
		byName:  make(map[string]int),
	}
}

// Load fetches the latest version's item data in lang and en_US
func (r *Registry) Load(ctx context.Context, lang string) error {
	if lang == "" {
		lang = "zh_TW"
	}

	var versions []string
	if err := r.getJSON(ctx, r.baseURL+"/api/versions.json", &versions); err != nil {
		return fmt.Errorf("failed to fetch versions: %w", err)
	}
	if len(versions) == 0 {
		return fmt.Errorf("no versions available")
	}
	version := versions[0]

	local, err := r.fetchItems(ctx, version, lang)
	if err != nil {
		return err
	}
	english := local
	if lang != "en_US" {
		if english, err = r.fetchItems(ctx, version, "en_US"); err != nil {
			return err
		}
	}

	items := make([]Item, 0, len(local))
	for idStr, loc := range local {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		en := english[idStr]
		items = append(items, Item{ID: id, English: en.Name, Local: loc.Name, Tags: en.Tags, Version: version})
	}

	r.replace(items, version, lang)
	r.log.Info().Int("items", len(items)).Str("version", version).Str("lang", lang).Msg("item map loaded")
	return nil
}

func (r *Registry) fetchItems(ctx context.Context, version, lang string) (map[string]itemData, error) {
	url := fmt.Sprintf("%s/cdn/%s/data/%s/item.json", r.baseURL, version, lang)
	var payload struct {
		Data map[string]itemData `json:"data"`
	}
	if err := r.getJSON(ctx, url, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch %s items: %w", lang, err)
	}
	return payload.Data, nil
}

func (r *Registry) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// replace swaps in a new item set
func (r *Registry) replace(items []Item, version, lang string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[int]Item, len(items))
	r.byName = make(map[string]int, len(items)*2)
	for _, it := range items {
		r.items[it.ID] = it
		// lower IDs win on name clashes (mode variants reuse names)
		for _, n := range []string{strings.ToLower(it.English), it.Local} {
			if n == "" {
				continue
			}
			if prev, ok := r.byName[n]; !ok || it.ID < prev {
				r.byName[n] = it.ID
			}
		}
	}
	r.version = version
	r.lang = lang
}

// Resolve finds an item by numeric ID, English name (any case) or local name
func (r *Registry) Resolve(s string) (Item, bool) {
	s = strings.TrimSpace(s)
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, err := strconv.Atoi(s); err == nil {
		it, ok := r.items[id]
		return it, ok
	}
	if id, ok := r.byName[s]; ok {
		return r.items[id], true
	}
	if id, ok := r.byName[strings.ToLower(s)]; ok {
		return r.items[id], true
	}
	return Item{}, false
}

// Localize returns the local display name for s, or s unchanged when unknown
func (r *Registry) Localize(s string) string {
	if it, ok := r.Resolve(s); ok && it.Local != "" {
		return it.Local
	}
	return s
}

// IconURL returns the Data Dragon icon for an item
func (r *Registry) IconURL(id int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("%s/cdn/%s/img/item/%d.png", r.baseURL, r.version, id)
}

// IconFor returns the icon URL for an item name, "" when unknown
func (r *Registry) IconFor(name string) string {
	it, ok := r.Resolve(name)
	if !ok {
		return ""
	}
	return r.IconURL(it.ID)
}

// Version returns the loaded Data Dragon version
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Len returns the number of items
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Items returns every item ordered by ID
func (r *Registry) Items() []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
