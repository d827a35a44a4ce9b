package storage

// Schema is the bootstrap SQL of both the durable and memory store.
const Schema = `
PRAGMA foreign_keys = OFF;

CREATE TABLE IF NOT EXISTS users (
	uid    INTEGER PRIMARY KEY,
	name   TEXT,
	status INTEGER,
	data   BLOB
);
CREATE TABLE IF NOT EXISTS chats (
	uid  INTEGER PRIMARY KEY,
	name TEXT,
	data BLOB
);
CREATE TABLE IF NOT EXISTS contacts (
	uid    INTEGER PRIMARY KEY,
	mutual INTEGER
);
CREATE TABLE IF NOT EXISTS dialogs (
	did          INTEGER PRIMARY KEY,
	date         INTEGER,
	unread_count INTEGER,
	last_mid     INTEGER
);
CREATE TABLE IF NOT EXISTS messages_v2 (
	mid        INTEGER,
	uid        INTEGER,
	read_state INTEGER,
	send_state INTEGER,
	date       INTEGER,
	data       BLOB,
	out        INTEGER,
	PRIMARY KEY (mid, uid)
);
CREATE INDEX IF NOT EXISTS uid_date_mid_idx_messages_v2 ON messages_v2 (uid, date, mid);

CREATE TABLE IF NOT EXISTS messages_holes (
	uid   INTEGER,
	start INTEGER,
	end   INTEGER,
	PRIMARY KEY (uid, start)
);
CREATE TABLE IF NOT EXISTS messages_topics (
	mid      INTEGER,
	uid      INTEGER,
	topic_id INTEGER,
	date     INTEGER,
	data     BLOB,
	PRIMARY KEY (mid, topic_id, uid)
);
CREATE TABLE IF NOT EXISTS messages_holes_topics (
	uid      INTEGER,
	topic_id INTEGER,
	start    INTEGER,
	end      INTEGER,
	PRIMARY KEY (uid, topic_id, start)
);
CREATE TABLE IF NOT EXISTS media_v4 (
	mid  INTEGER,
	uid  INTEGER,
	date INTEGER,
	type INTEGER,
	data BLOB,
	PRIMARY KEY (mid, uid, type)
);
CREATE TABLE IF NOT EXISTS media_holes_topics (
	uid      INTEGER,
	topic_id INTEGER,
	type     INTEGER,
	start    INTEGER,
	end      INTEGER,
	PRIMARY KEY (uid, topic_id, type, start)
);
CREATE TABLE IF NOT EXISTS media_holes_v2 (
	uid   INTEGER,
	type  INTEGER,
	start INTEGER,
	end   INTEGER,
	PRIMARY KEY (uid, type, start)
);

CREATE TABLE IF NOT EXISTS search_recent (
	did  INTEGER PRIMARY KEY,
	date INTEGER
);
CREATE TABLE IF NOT EXISTS enc_chats (
	uid  INTEGER PRIMARY KEY,
	user INTEGER,
	name TEXT,
	data BLOB
);
`
