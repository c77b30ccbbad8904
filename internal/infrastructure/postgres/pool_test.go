package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fletes-api/pkg/config"
)

func TestPoolConfig_Limites(t *testing.T) {
	pc, err := poolConfig(config.DBConfig{
		DatabaseURL: "postgres://u:p@db.example.com:6543/fletes?sslmode=require",
		MaxConns:    4,
		MinConns:    9,
	})
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", pc.ConnConfig.Host)
	assert.Equal(t, uint16(6543), pc.ConnConfig.Port)
	assert.Equal(t, int32(4), pc.MaxConns)
	assert.Equal(t, int32(4), pc.MinConns)
	assert.NotNil(t, pc.AfterConnect)
}

func TestPoolConfig_DSNConstruido(t *testing.T) {
	pc, err := poolConfig(config.DBConfig{
		Host: "localhost", Port: 5432, User: "postgres", Password: "p@ss:w",
		DBName: "fletes", SSLMode: "disable",
	})
	require.NoError(t, err)

	assert.Equal(t, "fletes", pc.ConnConfig.Database)
	assert.Equal(t, "p@ss:w", pc.ConnConfig.Password)
	assert.Equal(t, int32(25), pc.MaxConns)
}

func TestMigrationNames_Ordenadas(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_facturacion.sql", names[0])
}
