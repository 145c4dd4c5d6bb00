//go:build e2e

package container

import (
	"fmt"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/babylonlabs-io/staking-ledger/testutil"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

// ImageConfig contains all images and their respective tags
// needed for running e2e tests.
type ImageConfig struct {
	MongoRepository    string
	MongoVersion       string
	RabbitMQRepository string
	RabbitMQVersion    string
}

const (
	dockerMongoRepository    = "mongo"
	dockerMongoVersionTag    = "7.0.5"
	dockerRabbitMQRepository = "rabbitmq"
	dockerRabbitMQVersionTag = "3.13-management"

	RabbitMQUser     = "user"
	RabbitMQPassword = "password"
)

func NewImageConfig() ImageConfig {
	return ImageConfig{
		MongoRepository:    dockerMongoRepository,
		MongoVersion:       dockerMongoVersionTag,
		RabbitMQRepository: dockerRabbitMQRepository,
		RabbitMQVersion:    dockerRabbitMQVersionTag,
	}
}

// Manager starts the containers of a test run and purges them on cleanup.
type Manager struct {
	cfg       ImageConfig
	pool      *dockertest.Pool
	resources map[string]*dockertest.Resource
}

func NewManager(t *testing.T) (*Manager, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}
	pool.MaxWait = 2 * time.Minute

	m := &Manager{
		cfg:       NewImageConfig(),
		pool:      pool,
		resources: make(map[string]*dockertest.Resource),
	}
	t.Cleanup(func() {
		require.NoError(t, m.ClearResources())
	})
	return m, nil
}

func (m *Manager) run(name string, opts *dockertest.RunOptions) (*dockertest.Resource, error) {
	opts.Name = testutil.ContainerName(name)
	resource, err := m.pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, err
	}
	m.resources[name] = resource
	return resource, nil
}

// RunMongoResource starts a single node replica set and returns its connection string.
func (m *Manager) RunMongoResource() (string, error) {
	resource, err := m.run("ledger-e2e-mongo", &dockertest.RunOptions{
		Repository: m.cfg.MongoRepository,
		Tag:        m.cfg.MongoVersion,
		Cmd:        []string{"--replSet", "rs0", "--bind_ip_all"},
	})
	if err != nil {
		return "", err
	}

	err = retry.Do(func() error {
		code, err := resource.Exec(
			[]string{"mongosh", "--quiet", "--eval", "try { rs.status() } catch (e) { rs.initiate() }"},
			dockertest.ExecOptions{},
		)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("replica set initiation exited with %d", code)
		}
		return nil
	}, retry.Attempts(30), retry.Delay(time.Second), retry.DelayType(retry.FixedDelay))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", resource.GetPort("27017/tcp")), nil
}

// RunRabbitMQResource starts a broker and returns its host:port once it accepts connections.
func (m *Manager) RunRabbitMQResource() (string, error) {
	resource, err := m.run("ledger-e2e-rabbitmq", &dockertest.RunOptions{
		Repository: m.cfg.RabbitMQRepository,
		Tag:        m.cfg.RabbitMQVersion,
		Env: []string{
			"RABBITMQ_DEFAULT_USER=" + RabbitMQUser,
			"RABBITMQ_DEFAULT_PASS=" + RabbitMQPassword,
		},
	})
	if err != nil {
		return "", err
	}

	hostPort := "localhost:" + resource.GetPort("5672/tcp")
	err = m.pool.Retry(func() error {
		conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", RabbitMQUser, RabbitMQPassword, hostPort))
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		return "", err
	}

	return hostPort, nil
}

// ClearResources removes all outstanding containers.
func (m *Manager) ClearResources() error {
	for name, resource := range m.resources {
		if err := m.pool.Purge(resource); err != nil {
			return fmt.Errorf("purge %s: %w", name, err)
		}
		delete(m.resources, name)
	}
	return nil
}
