package database

// Config holds configuration for the tabular store connection.
type Config struct {
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name (file path or ":memory:" for sqlite).
	Name string `mapstructure:"name" default:"crm"`
	// Driver is the database driver (mysql, sqlite).
	Driver string `mapstructure:"driver" default:"mysql"`
	// Schema qualifies table names when set (e.g. "SXTLABS").
	Schema string `mapstructure:"schema" default:""`
	// Biscuits are the capability tokens presented on every store call.
	Biscuits []string `mapstructure:"biscuits" default:""`
	// TimeoutSeconds is the connection and I/O timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
