package repositories

import (
	"log"
	"os"
	"time"

	"github.com/gocql/gocql"
)

// Update is one entry in a user's updates feed. Every activity change a
// registered assignee can see becomes one of these.
type Update struct {
	ID         string    `json:"id"`
	UID        string    `json:"uid"`
	ActivityID string    `json:"activityId"`
	Action     string    `json:"action"`
	UserPhone  string    `json:"userPhone"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
	IsRead     bool      `json:"isRead"`
}

type UpdatesRepo struct {
	session *gocql.Session
	logger  *log.Logger
}

// NewUpdatesRepo connects to Cassandra and prepares the updates keyspace.
func NewUpdatesRepo(logger *log.Logger) (*UpdatesRepo, error) {
	db := os.Getenv("CASS_DB")
	if db == "" {
		db = "127.0.0.1"
	}

	cluster := gocql.NewCluster(db)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		logger.Println(err)
		return nil, err
	}

	err = session.Query(
		`CREATE KEYSPACE IF NOT EXISTS updates
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`).Exec()
	if err != nil {
		logger.Println("Failed to create keyspace:", err)
		return nil, err
	}
	session.Close()

	cluster.Keyspace = "updates"
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		logger.Println("Failed to connect to updates keyspace:", err)
		return nil, err
	}

	logger.Println("Connected to Cassandra updates keyspace.")
	return &UpdatesRepo{
		session: session,
		logger:  logger,
	}, nil
}

func (ur *UpdatesRepo) CloseSession() {
	ur.session.Close()
	ur.logger.Println("Cassandra session closed.")
}

// CreateTable creates the updates table. Feed reads are newest first.
func (ur *UpdatesRepo) CreateTable() {
	err := ur.session.Query(
		`CREATE TABLE IF NOT EXISTS updates (
			id UUID,
			uid TEXT,
			activity_id TEXT,
			action TEXT,
			user_phone TEXT,
			comment TEXT,
			created_at TIMESTAMP,
			is_read BOOLEAN,
			PRIMARY KEY ((uid), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		ur.logger.Println("Failed to create updates table:", err)
	} else {
		ur.logger.Println("Updates table created successfully!")
	}
}

func (ur *UpdatesRepo) CreateUpdate(update *Update) error {
	if update.ID == "" {
		update.ID = gocql.TimeUUID().String()
	}
	if update.CreatedAt.IsZero() {
		update.CreatedAt = time.Now()
	}

	err := ur.session.Query(
		`INSERT INTO updates (id, uid, activity_id, action, user_phone, comment, created_at, is_read)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		update.ID, update.UID, update.ActivityID, update.Action, update.UserPhone, update.Comment, update.CreatedAt, update.IsRead,
	).Exec()
	if err != nil {
		ur.logger.Println("Failed to create update:", err)
		return err
	}

	return nil
}

func (ur *UpdatesRepo) GetUpdatesByUID(uid string) ([]Update, error) {
	query := `SELECT id, uid, activity_id, action, user_phone, comment, created_at, is_read
			  FROM updates WHERE uid = ?`

	iter := ur.session.Query(query, uid).Iter()
	var updates []Update
	var update Update

	for iter.Scan(&update.ID, &update.UID, &update.ActivityID, &update.Action,
		&update.UserPhone, &update.Comment, &update.CreatedAt, &update.IsRead) {
		updates = append(updates, update)
	}

	if err := iter.Close(); err != nil {
		ur.logger.Println("Failed to fetch updates by uid:", err)
		return nil, err
	}

	return updates, nil
}

func (ur *UpdatesRepo) MarkUpdateAsRead(uid, updateID, createdAt string) error {
	parsedID, err := gocql.ParseUUID(updateID)
	if err != nil {
		ur.logger.Println("Invalid UUID format:", err)
		return err
	}

	parsedCreatedAt, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		ur.logger.Println("Invalid created_at format:", err)
		return err
	}

	query := `UPDATE updates SET is_read = true WHERE uid = ? AND id = ? AND created_at = ?`
	err = ur.session.Query(query, uid, parsedID, parsedCreatedAt).Exec()
	if err != nil {
		ur.logger.Println("Failed to mark update as read:", err)
		return err
	}

	return nil
}
