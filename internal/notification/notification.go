/*
Copyright 2025 Sellergrid Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sellergrid/catsync/config"
	"github.com/sellergrid/catsync/model"
)

func postJSON(url string, headers map[string]string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// SlackNotification sends an error message to the configured Slack webhook.
func SlackNotification(err error) {
	conf, confErr := config.Fetch()
	if confErr != nil {
		log.Println(confErr)
		return
	}
	if conf.Notification.Slack.WebhookUrl == "" {
		return
	}

	payload := json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {
					"type": "plain_text",
					"text": "Catalog sync error 🐞",
					"emoji": true
				}
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": "*Error:*\n%v"
					}
				]
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": "*Time:*\n%v"
					}
				]
			}
		]
	}`, err.Error(), time.Now().Format(time.RFC822)))

	if sendErr := postJSON(conf.Notification.Slack.WebhookUrl, nil, payload); sendErr != nil {
		logrus.Error(sendErr)
	}
}

// NotifyError reports a fatal pipeline error to every configured channel.
// The Slack send is synchronous: callers exit right after, and an in-flight
// goroutine would die with the process.
func NotifyError(systemError error) {
	logrus.Error(systemError)
	SlackNotification(systemError)
}

// NotifySyncReport posts the aggregate stats of a finished sync run to the
// configured webhook. Failures are logged, never fatal; the run already
// succeeded by the time a report goes out.
func NotifySyncReport(stats *model.SyncStats) {
	conf, err := config.Fetch()
	if err != nil {
		log.Println(err)
		return
	}
	if conf.Notification.Webhook.Url == "" {
		return
	}

	payload := map[string]interface{}{
		"project": conf.ProjectName,
		"event":   "catalog.sync.completed",
		"time":    time.Now().Format(time.RFC3339),
		"stats":   stats,
	}

	if err := postJSON(conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, payload); err != nil {
		logrus.Warnf("could not deliver sync report: %v", err)
	}
}
