package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"streamtap/internal/llm"
	"streamtap/internal/sqlitedb"
)

// SQLiteMemory implements Memory using SQLite.
type SQLiteMemory struct {
	db *sql.DB
}

// NewSQLiteMemory opens (or creates) a SQLite database at the given path.
func NewSQLiteMemory(dbPath string) (*SQLiteMemory, error) {
	db, err := sqlitedb.Open(context.Background(), dbPath, migrations)
	if err != nil {
		return nil, err
	}
	return &SQLiteMemory{db: db}, nil
}

func (m *SQLiteMemory) SaveMessage(ctx context.Context, chatID string, msg llm.Message) error {
	return m.SaveMessages(ctx, chatID, []llm.Message{msg})
}

// SaveMessages appends msgs in one transaction.
func (m *SQLiteMemory) SaveMessages(ctx context.Context, chatID string, msgs []llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (chat_id, role, content, tool_calls, tool_call_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, msg := range msgs {
		var toolCallsJSON *string
		if len(msg.ToolCalls) > 0 {
			data, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return err
			}
			s := string(data)
			toolCallsJSON = &s
		}

		var toolCallID *string
		if msg.ToolCallID != "" {
			toolCallID = &msg.ToolCallID
		}

		if _, err := stmt.ExecContext(ctx, chatID, msg.Role, msg.Content, toolCallsJSON, toolCallID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *SQLiteMemory) GetHistory(ctx context.Context, chatID string, limit int) ([]llm.Message, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id FROM (
			SELECT role, content, tool_calls, tool_call_id, id
			FROM messages WHERE chat_id = ? ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var msg llm.Message
		var toolCallsJSON, toolCallID sql.NullString

		if err := rows.Scan(&msg.Role, &msg.Content, &toolCallsJSON, &toolCallID); err != nil {
			return nil, err
		}

		if toolCallsJSON.Valid {
			_ = json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls)
		}
		if toolCallID.Valid {
			msg.ToolCallID = toolCallID.String
		}

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A window that opens on tool results has lost their tool_use turn.
	for len(messages) > 0 && messages[0].Role == "tool" {
		messages = messages[1:]
	}
	return messages, nil
}

func (m *SQLiteMemory) SaveSummary(ctx context.Context, chatID string, summary string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO summaries (chat_id, summary, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		chatID, summary,
	)
	return err
}

func (m *SQLiteMemory) GetSummary(ctx context.Context, chatID string) (string, error) {
	var summary string
	err := m.db.QueryRowContext(ctx,
		`SELECT summary FROM summaries WHERE chat_id = ?`,
		chatID,
	).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return summary, err
}

func (m *SQLiteMemory) Close() error {
	return m.db.Close()
}
