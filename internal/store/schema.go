package store

// SQLite DDL, applied on every Attach. Statements are idempotent.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    google_subject TEXT,
    created_at TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS sessions (
    token_hash TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    expires_at TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);`,
	`CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL,
    created_at TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS project_members (
    project_id INTEGER NOT NULL,
    user_id INTEGER NOT NULL,
    role TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (project_id, user_id),
    FOREIGN KEY (project_id) REFERENCES projects(id),
    FOREIGN KEY (user_id) REFERENCES users(id)
);`,
	`CREATE TABLE IF NOT EXISTS releases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    version TEXT NOT NULL,
    notes TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id)
);`,
	`CREATE TABLE IF NOT EXISTS test_cases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    case_number INTEGER NOT NULL,
    title TEXT NOT NULL,
    steps TEXT NOT NULL,
    expected_result TEXT NOT NULL,
    is_active INTEGER NOT NULL,
    attachments TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id)
);`,
	`CREATE TABLE IF NOT EXISTS test_case_values (
    test_case_id INTEGER NOT NULL,
    level_number INTEGER NOT NULL,
    value_label TEXT NOT NULL,
    PRIMARY KEY (test_case_id, level_number),
    FOREIGN KEY (test_case_id) REFERENCES test_cases(id)
);`,
	`CREATE TABLE IF NOT EXISTS test_book_axes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    level_number INTEGER NOT NULL,
    label TEXT NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id)
);`,
	`CREATE TABLE IF NOT EXISTS test_book_axis_values (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    axis_id INTEGER NOT NULL,
    value_label TEXT NOT NULL,
    sort_order INTEGER NOT NULL,
    FOREIGN KEY (axis_id) REFERENCES test_book_axes(id)
);`,
	`CREATE TABLE IF NOT EXISTS test_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    release_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    created_by INTEGER NOT NULL,
    status TEXT NOT NULL,
    scope_threshold REAL NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id),
    FOREIGN KEY (release_id) REFERENCES releases(id),
    FOREIGN KEY (created_by) REFERENCES users(id)
);`,
	`CREATE TABLE IF NOT EXISTS test_run_cases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    case_number INTEGER NOT NULL,
    source_case_id INTEGER,
    title TEXT NOT NULL,
    steps TEXT NOT NULL,
    expected_result TEXT NOT NULL,
    attachments TEXT NOT NULL,
    status TEXT NOT NULL,
    comment TEXT NOT NULL,
    tested_at TEXT,
    tested_by INTEGER,
    FOREIGN KEY (run_id) REFERENCES test_runs(id),
    FOREIGN KEY (tested_by) REFERENCES users(id)
);`,
	`CREATE TABLE IF NOT EXISTS test_run_case_values (
    run_case_id INTEGER NOT NULL,
    level_number INTEGER NOT NULL,
    value_label TEXT NOT NULL,
    PRIMARY KEY (run_case_id, level_number),
    FOREIGN KEY (run_case_id) REFERENCES test_run_cases(id)
);`,
	`CREATE TABLE IF NOT EXISTS attachments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    test_case_id INTEGER,
    run_case_id INTEGER,
    file_name TEXT NOT NULL,
    stored_name TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size INTEGER NOT NULL,
    uploaded_by INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id)
);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_members_user ON project_members(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_releases_project ON releases(project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_test_cases_project ON test_cases(project_id, case_number);`,
	`CREATE INDEX IF NOT EXISTS idx_axes_project ON test_book_axes(project_id, level_number);`,
	`CREATE INDEX IF NOT EXISTS idx_axis_values_axis ON test_book_axis_values(axis_id, sort_order);`,
	`CREATE INDEX IF NOT EXISTS idx_runs_release ON test_runs(release_id);`,
	`CREATE INDEX IF NOT EXISTS idx_run_cases_run ON test_run_cases(run_id, case_number);`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_project ON attachments(project_id);`,
}

// MySQL DDL. Indexes are declared inline because MySQL has no
// CREATE INDEX IF NOT EXISTS; TEXT columns carry no defaults.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    name VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    google_subject VARCHAR(255) NULL,
    created_at VARCHAR(40) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS sessions (
    token_hash VARCHAR(64) NOT NULL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    expires_at VARCHAR(40) NOT NULL,
    created_at VARCHAR(40) NOT NULL,
    KEY idx_sessions_user (user_id),
    FOREIGN KEY (user_id) REFERENCES users(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS projects (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL,
    created_at VARCHAR(40) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS project_members (
    project_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    role VARCHAR(32) NOT NULL,
    created_at VARCHAR(40) NOT NULL,
    PRIMARY KEY (project_id, user_id),
    KEY idx_members_user (user_id),
    FOREIGN KEY (project_id) REFERENCES projects(id),
    FOREIGN KEY (user_id) REFERENCES users(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS releases (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    project_id BIGINT NOT NULL,
    version VARCHAR(255) NOT NULL,
    notes TEXT NOT NULL,
    created_at VARCHAR(40) NOT NULL,
    KEY idx_releases_project (project_id),
    FOREIGN KEY (project_id) REFERENCES projects(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS test_cases (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    project_id BIGINT NOT NULL,
    case_number INT NOT NULL,
    title VARCHAR(512) NOT NULL,
    steps TEXT NOT NULL,
    expected_result TEXT NOT NULL,
    is_active TINYINT NOT NULL,
    attachments TEXT NOT NULL,
    created_at VARCHAR(40) NOT NULL,
    updated_at VARCHAR(40) NOT NULL,
    KEY idx_test_cases_project (project_id, case_number),
    FOREIGN KEY (project_id) REFERENCES projects(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS test_case_values (
    test_case_id BIGINT NOT NULL,
    level_number INT NOT NULL,
    value_label VARCHAR(255) NOT NULL,
    PRIMARY KEY (test_case_id, level_number),
    FOREIGN KEY (test_case_id) REFERENCES test_cases(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS test_book_axes (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    project_id BIGINT NOT NULL,
    level_number INT NOT NULL,
    label VARCHAR(255) NOT NULL,
    KEY idx_axes_project (project_id, level_number),
    FOREIGN KEY (project_id) REFERENCES projects(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS test_book_axis_values (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    axis_id BIGINT NOT NULL,
    value_label VARCHAR(255) NOT NULL,
    sort_order INT NOT NULL,
    KEY idx_axis_values_axis (axis_id, sort_order),
    FOREIGN KEY (axis_id) REFERENCES test_book_axes(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS test_runs (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    project_id BIGINT NOT NULL,
    release_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    created_by BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL,
    scope_threshold DOUBLE NOT NULL,
    created_at VARCHAR(40) NOT NULL,
    KEY idx_runs_release (release_id),
    FOREIGN KEY (project_id) REFERENCES projects(id),
    FOREIGN KEY (release_id) REFERENCES releases(id),
    FOREIGN KEY (created_by) REFERENCES users(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS test_run_cases (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    run_id BIGINT NOT NULL,
    case_number INT NOT NULL,
    source_case_id BIGINT NULL,
    title VARCHAR(512) NOT NULL,
    steps TEXT NOT NULL,
    expected_result TEXT NOT NULL,
    attachments TEXT NOT NULL,
    status VARCHAR(16) NOT NULL,
    comment TEXT NOT NULL,
    tested_at VARCHAR(40) NULL,
    tested_by BIGINT NULL,
    KEY idx_run_cases_run (run_id, case_number),
    FOREIGN KEY (run_id) REFERENCES test_runs(id),
    FOREIGN KEY (tested_by) REFERENCES users(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS test_run_case_values (
    run_case_id BIGINT NOT NULL,
    level_number INT NOT NULL,
    value_label VARCHAR(255) NOT NULL,
    PRIMARY KEY (run_case_id, level_number),
    FOREIGN KEY (run_case_id) REFERENCES test_run_cases(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS attachments (
    id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    project_id BIGINT NOT NULL,
    test_case_id BIGINT NULL,
    run_case_id BIGINT NULL,
    file_name VARCHAR(255) NOT NULL,
    stored_name VARCHAR(255) NOT NULL,
    content_type VARCHAR(255) NOT NULL,
    size BIGINT NOT NULL,
    uploaded_by BIGINT NOT NULL,
    created_at VARCHAR(40) NOT NULL,
    KEY idx_attachments_project (project_id),
    FOREIGN KEY (project_id) REFERENCES projects(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
}

// tableNames lists every table in dependency order. Backup and restore walk
// it front to back; cascading wipes walk it back to front.
var tableNames = []string{
	"users",
	"sessions",
	"projects",
	"project_members",
	"releases",
	"test_cases",
	"test_case_values",
	"test_book_axes",
	"test_book_axis_values",
	"test_runs",
	"test_run_cases",
	"test_run_case_values",
	"attachments",
}
