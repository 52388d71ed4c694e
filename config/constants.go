package constants

import "time"

// Identity
const (
	APP_NAME   = "mysql_logger"
	SYSLOG_TAG = "mysql_logger"
	ENV_PREFIX = "MYSQL_LOGGER"
)

// Polling
const (
	PROCESSLIST_QUERY = "SHOW FULL PROCESSLIST"
	POLL_INTERVAL     = 1 * time.Second
	TIMESTAMP_FORMAT  = "2006-01-02 15:04:05 -0700"
)

// Commands accepted by --command
const (
	COMMAND_START  = "start"
	COMMAND_STOP   = "stop"
	COMMAND_STATUS = "status"
)

// File paths
const (
	MYSQL_CNF       = "/etc/mysql/my.cnf"
	PID_FILE        = "/tmp/mysql_logger.pid"
	LOG_FILE        = "/tmp/mysql_logger.log"
	CONFIG_DIR      = "/etc/mysql-logger"
	CONFIG_NAME     = "mysql_logger"
	NULL_DEVICE     = "/dev/null"
	DETACH_WORK_DIR = "/"
)

// DETACH_STAGE_ENV carries the detach stage across the re-exec chain.
const DETACH_STAGE_ENV = "MYSQL_LOGGER_DETACH_STAGE"

// Service registration (systemd/launchd)
const (
	SERVICE_NAME        = "mysql-logger"
	SERVICE_DESCRIPTION = "MySQL processlist logger"
)
