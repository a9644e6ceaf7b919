// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shortforge/internal/api"
	"github.com/tomtom215/shortforge/internal/brain"
	"github.com/tomtom215/shortforge/internal/daemon"
	"github.com/tomtom215/shortforge/internal/models"
)

const defaultAdminAddr = "127.0.0.1:8750"

// adminClient talks to a running daemon's admin API.
type adminClient struct {
	base string
	http *http.Client
}

// channelView mirrors the admin API's status payload.
type channelView struct {
	daemon.ChannelStatus
	Learning   brain.ChannelReport `json:"learning"`
	Advisories []models.Advisory   `json:"advisories"`
}

type statusView struct {
	Channels []channelView `json:"channels"`
}

func runClient(cmd string, args []string) int {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	addr := fs.String("addr", defaultAdminAddr, "admin API address of the running daemon")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	client := &adminClient{
		base: "http://" + *addr,
		http: &http.Client{Timeout: 10 * time.Second},
	}

	var err error
	switch cmd {
	case "status":
		err = client.status()
	case "force-tick":
		err = client.forceTick()
	case "pause", "resume":
		channel := fs.Arg(0)
		if channel == "" {
			fmt.Fprintf(os.Stderr, "usage: shortforge %s <channel>\n", cmd)
			return exitConfigError
		}
		err = client.channelAction(cmd, channel)
	case "stop":
		err = client.stop()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitConfigError
	}
	return exitOK
}

func (c *adminClient) status() error {
	var view statusView
	if err := c.call(http.MethodGet, "/api/v1/status", &view); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tSTATE\tFORMAT\tNEXT DUE\tTHRESHOLD\tOBSERVATIONS\tADVISORIES\tERRORS\tLAST ERROR")
	for _, ch := range view.Channels {
		nextDue := "now"
		if !ch.NextDueAt.IsZero() {
			nextDue = ch.NextDueAt.Local().Format(time.RFC3339)
		}
		state := string(ch.State)
		if ch.InFlight {
			state += " (producing)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%d\t%d\t%d\t%s\n",
			ch.ID, state, ch.Format, nextDue,
			ch.Learning.Threshold, ch.Learning.Observations,
			len(ch.Advisories), ch.ConsecutiveErrors, ch.LastError)
	}
	return w.Flush()
}

func (c *adminClient) forceTick() error {
	if err := c.call(http.MethodPost, "/api/v1/tick", nil); err != nil {
		return err
	}
	fmt.Println("tick started")
	return nil
}

func (c *adminClient) channelAction(action, channel string) error {
	path := "/api/v1/channels/" + url.PathEscape(channel) + "/" + action
	if err := c.call(http.MethodPost, path, nil); err != nil {
		return err
	}
	fmt.Printf("channel %s %sd\n", channel, action)
	return nil
}

func (c *adminClient) stop() error {
	if err := c.call(http.MethodPost, "/api/v1/shutdown", nil); err != nil {
		return err
	}
	fmt.Println("shutdown initiated")
	return nil
}

// call issues a request and decodes the standard response wrapper. A
// non-nil out receives the Data payload.
func (c *adminClient) call(method, path string, out any) error {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	var wrapper api.APIResponse
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return fmt.Errorf("unexpected response from daemon: %w", err)
	}
	if !wrapper.Success {
		if wrapper.Error != nil {
			return fmt.Errorf("%s: %s", wrapper.Error.Code, wrapper.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(wrapper.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
