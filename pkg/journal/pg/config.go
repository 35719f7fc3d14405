package pg

import "flag"

type Config struct {
	Conn  string `yaml:"conn"`
	Table string `yaml:"table"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Conn, flagPrefix+"pg.conn", "", `Postgres connection string`)
	f.StringVar(&c.Table, flagPrefix+"pg.table", "einfiler_runs", `Table runs are journaled to`)
}
