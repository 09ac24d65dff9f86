package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleAdmin отдает страницу админки. Данные страница загружает из /api/admin/*.
func (s *Server) handleAdmin(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(adminHTML))
}

const adminHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Support Chat Admin</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; background: #f5f5f5; }
        .container { max-width: 1200px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #333; margin-bottom: 20px; }
        .stats { display: flex; gap: 16px; flex-wrap: wrap; margin-bottom: 20px; }
        .stat { background: #e3f2fd; padding: 15px; border-radius: 5px; min-width: 140px; }
        .stat b { display: block; font-size: 24px; color: #1976d2; }
        .tabs button { padding: 8px 15px; border: none; background: #ddd; cursor: pointer; border-radius: 3px; margin-right: 6px; }
        .tabs button.active { background: #1976d2; color: white; }
        table { width: 100%; border-collapse: collapse; margin-top: 16px; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; vertical-align: top; font-size: 14px; }
        .good { color: #2e7d32; }
        .bad { color: #c62828; }
        .user { color: #1565c0; }
        .assistant { color: #6a1b9a; }
        .content p { margin: 0 0 6px 0; }
        .error { color: red; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Support Chat Admin</h1>
        <div class="stats" id="stats">Loading...</div>
        <div class="tabs">
            <button id="tab-survey" class="active" onclick="showTab('survey')">Survey responses</button>
            <button id="tab-chat" onclick="showTab('chat')">Chat messages</button>
            <button onclick="loadAll()">Refresh</button>
        </div>
        <div id="survey"></div>
        <div id="chat" style="display:none"></div>
    </div>

    <script>
        function esc(v) {
            return String(v == null ? '' : v).replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
        }
        function fmt(ts) { return ts ? new Date(ts).toLocaleString() : ''; }
        function stat(label, value) { return '<div class="stat">' + esc(label) + '<b>' + esc(value) + '</b></div>'; }

        function showTab(name) {
            for (const t of ['survey', 'chat']) {
                document.getElementById(t).style.display = t === name ? '' : 'none';
                document.getElementById('tab-' + t).className = t === name ? 'active' : '';
            }
        }

        async function getJSON(url) {
            const res = await fetch(url);
            if (!res.ok) throw new Error(url + ': ' + res.status);
            return res.json();
        }

        async function loadAll() {
            try {
                const [responses, surveyStats, messages, chatStats] = await Promise.all([
                    getJSON('/api/admin/survey-responses'),
                    getJSON('/api/admin/survey-stats'),
                    getJSON('/api/admin/chat-messages'),
                    getJSON('/api/admin/chat-stats'),
                ]);

                document.getElementById('stats').innerHTML =
                    stat('Survey responses', surveyStats.total) +
                    stat('Good', (surveyStats.ratings || {}).good || 0) +
                    stat('Bad', (surveyStats.ratings || {}).bad || 0) +
                    stat('Messages', chatStats.total) +
                    stat('Assistant replies', chatStats.assistantMessages) +
                    stat('Response rate', chatStats.surveyResponseRate + '%');

                let survey = '<table><tr><th>Date</th><th>Message</th><th>Rating</th><th>IP</th></tr>';
                for (const r of responses.responses || []) {
                    survey += '<tr><td>' + esc(fmt(r.created_at)) + '</td><td>' + esc(r.message_id) +
                        '</td><td class="' + esc(r.rating) + '">' + esc(r.rating) + '</td><td>' + esc(r.user_ip) + '</td></tr>';
                }
                document.getElementById('survey').innerHTML = survey + '</table>';

                // content_html is rendered server side with raw HTML stripped
                let chat = '<table><tr><th>Date</th><th>Role</th><th>Content</th><th>Session</th><th>Rating</th></tr>';
                for (const m of messages.messages || []) {
                    chat += '<tr><td>' + esc(fmt(m.created_at)) + '</td><td class="' + esc(m.role) + '">' + esc(m.role) +
                        '</td><td class="content">' + (m.content_html || esc(m.content)) + '</td><td>' + esc(m.session_id) +
                        '</td><td class="' + esc(m.survey_rating) + '">' + esc(m.survey_rating) + '</td></tr>';
                }
                document.getElementById('chat').innerHTML = chat + '</table>';
            } catch (err) {
                document.getElementById('stats').innerHTML = '<div class="error">Error loading data: ' + esc(err.message) + '</div>';
            }
        }

        loadAll();
    </script>
</body>
</html>`
