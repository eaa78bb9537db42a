package storage

const schema = `
-- The 'reviews' table is the append-only review log. Each row is the schedule
-- a card received after one review; the row with the highest id per card_key
-- is the card's current schedule.
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_key TEXT NOT NULL,
    score TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL,
    content_hash TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL,
    interval_days REAL NOT NULL,
    ease REAL NOT NULL,
    steps INTEGER NOT NULL DEFAULT 0,
    due DATETIME
);

CREATE INDEX IF NOT EXISTS reviews_card_key_id ON reviews(card_key, id);

-- History is never rewritten. Rows only disappear when their card is deleted.
CREATE TRIGGER IF NOT EXISTS reviews_append_only
BEFORE UPDATE ON reviews
BEGIN
    SELECT RAISE(ABORT, 'reviews are append-only');
END;
`
