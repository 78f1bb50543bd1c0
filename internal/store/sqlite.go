package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);

CREATE TABLE IF NOT EXISTS daily_words (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	word TEXT NOT NULL,
	pinyin TEXT,
	translation TEXT,
	full_content TEXT NOT NULL,
	sent_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_daily_words_sent_at ON daily_words(sent_at);
`

// SQLiteLog is the durable message and daily-word log.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed initializes) the log database at path.
func OpenSQLite(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteLog{db: db}, nil
}

// Close closes the underlying database.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

// AppendMessage durably logs one message.
func (l *SQLiteLog) AppendMessage(chatID, userID, role, content string) error {
	_, err := l.db.Exec(
		`INSERT INTO messages (chat_id, user_id, role, content) VALUES (?, ?, ?, ?)`,
		chatID, userID, role, content,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages for a chat in chronological
// order.
func (l *SQLiteLog) RecentMessages(chatID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(
		`SELECT role, content FROM messages WHERE chat_id = ? ORDER BY id DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest-first from the query; flip to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SaveDailyWord records a sent word of the day.
func (l *SQLiteLog) SaveDailyWord(word, pinyin, translation, fullContent string) error {
	_, err := l.db.Exec(
		`INSERT INTO daily_words (word, pinyin, translation, full_content) VALUES (?, ?, ?, ?)`,
		word, pinyin, translation, fullContent,
	)
	if err != nil {
		return fmt.Errorf("insert daily word: %w", err)
	}
	return nil
}

// PreviousDailyWords returns up to limit previously sent words, newest first.
func (l *SQLiteLog) PreviousDailyWords(limit int) ([]string, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := l.db.Query(`SELECT word FROM daily_words ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query daily words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan daily word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}
