package tracker

import "time"

// Record is what the tracker remembers about a message to describe later
// edits and deletions.
type Record struct {
	SenderID   int64
	Text       string
	HasMedia   bool
	MediaType  string
	CapturedAt time.Time
}

// messageCache lives only as long as the process. It is owned by the
// tracker loop and needs no locking.
type messageCache struct {
	records map[MessageKey]Record
}

func newMessageCache() *messageCache {
	return &messageCache{records: make(map[MessageKey]Record)}
}

func (c *messageCache) put(key MessageKey, r Record) {
	c.records[key] = r
}

func (c *messageCache) get(key MessageKey) (Record, bool) {
	r, ok := c.records[key]
	return r, ok
}

// setText updates only the text, media fields keep their original values.
func (c *messageCache) setText(key MessageKey, text string) {
	r, ok := c.records[key]
	if !ok {
		return
	}
	r.Text = text
	c.records[key] = r
}

func (c *messageCache) remove(key MessageKey) {
	delete(c.records, key)
}

func (c *messageCache) len() int {
	return len(c.records)
}
