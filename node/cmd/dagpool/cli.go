/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dagpool

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/hyperledger/fabric-lib-go/common/metrics/disabled"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/config"
	"github.com/hyperledger/fabric-x-dagpool/node/comm"
	"github.com/hyperledger/fabric-x-dagpool/node/primary"
	"github.com/hyperledger/fabric-x-dagpool/node/utils"
	"github.com/hyperledger/fabric-x-dagpool/node/worker"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/alecthomas/kingpin.v2"
)

var logger = flogging.MustGetLogger("dagpool")

type node interface {
	Start() error
	Stop()
	Done() <-chan struct{}
	Address() string
}

type CLI struct {
	app         *kingpin.Application
	out         io.Writer
	dispatchers map[string]func() error
	stop        chan struct{}

	configPath string
	endpoint   string
	timeout    time.Duration
	txs        []string
	digests    []string
	workerID   uint32

	lock sync.Mutex
	node node
}

func NewCLI() *CLI {
	app := kingpin.New("dagpool", "Launches a dagpool node (worker | primary) and talks to running ones")
	cli := &CLI{
		app:         app,
		out:         os.Stdout,
		dispatchers: make(map[string]func() error),
		stop:        make(chan struct{}),
	}
	cli.configureCommands()
	return cli
}

func (cli *CLI) command(name, help string, onCmd func() error) *kingpin.CmdClause {
	cli.dispatchers[name] = onCmd
	return cli.app.Command(name, help)
}

func (cli *CLI) configureCommands() {
	workerCmd := cli.command("worker", "run a worker node", func() error {
		return cli.launch(func(conf *config.NodeConfig) (node, error) {
			return worker.CreateWorker(conf, logger)
		})
	})
	workerCmd.Flag("config", "Specifies the config file to load the configuration from").Required().ExistingFileVar(&cli.configPath)

	primaryCmd := cli.command("primary", "run a primary node", func() error {
		return cli.launch(func(conf *config.NodeConfig) (node, error) {
			return primary.CreatePrimary(conf, logger)
		})
	})
	primaryCmd.Flag("config", "Specifies the config file to load the configuration from").Required().ExistingFileVar(&cli.configPath)

	digestCmd := cli.command("digest", "validate hex encoded batch digests", cli.printDigests)
	digestCmd.Arg("digests", "hex encoded digests").Required().StringsVar(&cli.digests)

	submitCmd := cli.command("submit", "submit transactions to a worker and print the digests of their batches", cli.submit)
	submitCmd.Flag("worker", "endpoint of the worker").Required().StringVar(&cli.endpoint)
	submitCmd.Flag("timeout", "how long to wait for the transactions to be sealed").Default("10s").DurationVar(&cli.timeout)
	submitCmd.Arg("txs", "transactions").Required().StringsVar(&cli.txs)

	fetchCmd := cli.command("fetch", "fetch batches from a worker and verify their digests", cli.fetch)
	fetchCmd.Flag("worker", "endpoint of the worker").Required().StringVar(&cli.endpoint)
	fetchCmd.Flag("worker-id", "id of the worker, for logging").Default("1").Uint32Var(&cli.workerID)
	fetchCmd.Flag("timeout", "how long to wait for the batches").Default("10s").DurationVar(&cli.timeout)
	fetchCmd.Arg("digests", "hex encoded digests").Required().StringsVar(&cli.digests)
}

// Run executes the command in args. Node commands return once the node serves;
// the returned channel is closed when it stops.
func (cli *CLI) Run(args []string) (<-chan struct{}, error) {
	command, err := cli.app.Parse(args)
	if err != nil {
		return nil, err
	}
	f, exists := cli.dispatchers[command]
	if !exists {
		return nil, errors.Errorf("command %s doesn't exist", command)
	}

	if err := f(); err != nil {
		return nil, err
	}
	return cli.stop, nil
}

// Stop stops the node launched by Run, if any.
func (cli *CLI) Stop() {
	cli.lock.Lock()
	n := cli.node
	cli.lock.Unlock()
	if n != nil {
		n.Stop()
	}
}

func (cli *CLI) launch(create func(conf *config.NodeConfig) (node, error)) error {
	conf, err := config.LoadNodeConfig(cli.configPath)
	if err != nil {
		return err
	}
	if err := flogging.Global.ActivateSpec(conf.LogSpec); err != nil {
		return errors.Wrapf(err, "bad LogSpec %q", conf.LogSpec)
	}

	n, err := create(conf)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		n.Stop()
		return err
	}

	cli.lock.Lock()
	cli.node = n
	cli.lock.Unlock()

	utils.StopSignalListen(n.Done(), n, logger, n.Address())
	go func() {
		<-n.Done()
		close(cli.stop)
	}()

	logger.Infof("Node listening on %s", n.Address())
	return nil
}

func (cli *CLI) printDigests() error {
	for _, s := range cli.digests {
		d, err := types.DigestFromHex(s)
		if err != nil {
			return errors.Wrapf(err, "bad digest %q", s)
		}
		fmt.Fprintf(cli.out, "%s %s\n", d.String(), d.Short())
	}
	close(cli.stop)
	return nil
}

func (cli *CLI) submit() error {
	client, err := comm.NewTransactionClient(cli.endpoint, 0)
	if err != nil {
		return err
	}
	defer client.Close()

	// Transactions are submitted together, since each one waits until its batch is sealed.
	digests := make([]types.BatchDigest, len(cli.txs))
	ctx, cancel := context.WithTimeout(context.Background(), cli.timeout)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	for i, tx := range cli.txs {
		i, tx := i, tx
		g.Go(func() error {
			digest, err := client.SubmitTransaction(ctx, []byte(tx))
			if err != nil {
				return errors.Wrapf(err, "failed submitting transaction %d", i)
			}
			digests[i] = digest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, digest := range digests {
		fmt.Fprintf(cli.out, "%s\n", digest)
	}
	close(cli.stop)
	return nil
}

func (cli *CLI) fetch() error {
	digests := make([]types.BatchDigest, 0, len(cli.digests))
	for _, s := range cli.digests {
		d, err := types.DigestFromHex(s)
		if err != nil {
			return errors.Wrapf(err, "bad digest %q", s)
		}
		digests = append(digests, d)
	}

	client, err := comm.NewWorkerClient(cli.endpoint, 0)
	if err != nil {
		return err
	}
	defer client.Close()

	id := types.WorkerID(cli.workerID)
	fetcher := primary.NewFetcher(
		map[types.WorkerID]primary.BatchRequester{id: client},
		primary.FetcherOptions{MaxRetries: len(digests), RequestTimeout: cli.timeout},
		nil,
		primary.NewPrimaryMetrics(&disabled.Provider{}, 0, logger),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), cli.timeout)
	defer cancel()
	res, err := fetcher.FetchBatches(ctx, id, digests)
	if err != nil {
		return err
	}

	for _, d := range digests {
		if b, ok := res.Batches[d]; ok {
			fmt.Fprintf(cli.out, "%s found %s\n", d, types.BatchToString(b))
		} else {
			fmt.Fprintf(cli.out, "%s missing\n", d)
		}
	}
	close(cli.stop)
	return nil
}
