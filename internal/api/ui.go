package api

import "net/http"

func handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(uiHTML))
}

const uiHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FAQForge</title>
    <style>
        * { box-sizing: border-box; }
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; background: #f4f5f7; margin: 0; color: #1f2430; }
        .container { max-width: 760px; margin: 0 auto; padding: 24px 16px; }
        header h1 { margin: 0 0 4px; font-size: 1.6rem; }
        header p { margin: 0 0 20px; color: #6b7280; }
        .tabs { display: flex; gap: 8px; margin-bottom: 16px; }
        .tabs button { padding: 8px 20px; border: 1px solid #d1d5db; background: #fff; border-radius: 6px; cursor: pointer; font-size: 0.95rem; }
        .tabs button.active { background: #2563eb; color: #fff; border-color: #2563eb; }
        .panel { display: none; background: #fff; border: 1px solid #e5e7eb; border-radius: 8px; padding: 20px; }
        .panel.active { display: block; }
        label { display: block; margin: 12px 0 4px; font-weight: 600; font-size: 0.9rem; }
        input[type=text], select, textarea { width: 100%; padding: 8px; border: 1px solid #d1d5db; border-radius: 6px; font-size: 0.95rem; font-family: inherit; }
        textarea { min-height: 140px; resize: vertical; }
        .actions { margin-top: 16px; }
        .actions button, #chat-form button { padding: 8px 24px; border: none; border-radius: 6px; background: #2563eb; color: #fff; cursor: pointer; font-size: 0.95rem; }
        .actions button:disabled { background: #93c5fd; cursor: wait; }
        #status { margin-top: 16px; white-space: pre-wrap; font-family: ui-monospace, monospace; font-size: 0.85rem; background: #f9fafb; border: 1px solid #e5e7eb; border-radius: 6px; padding: 12px; min-height: 48px; }
        #status .error { color: #dc2626; }
        #history { border: 1px solid #e5e7eb; border-radius: 6px; padding: 12px; height: 320px; overflow-y: auto; margin-bottom: 12px; background: #f9fafb; }
        .turn { margin-bottom: 10px; }
        .turn .q { font-weight: 600; }
        .turn .a { margin-top: 2px; }
        .turn .a.guidance { color: #92400e; }
        #chat-form { display: flex; gap: 8px; }
        #chat-form input { flex: 1; }
        #clear-btn { background: #6b7280; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>FAQForge</h1>
            <p>Train a chatbot on your business FAQs, then chat with it.</p>
        </header>

        <div class="tabs">
            <button id="tab-train" class="active" onclick="showTab('train')">Train Chatbot</button>
            <button id="tab-chat" onclick="showTab('chat')">Chat</button>
        </div>

        <div id="panel-train" class="panel active">
            <label for="biz-name">Business name</label>
            <input type="text" id="biz-name" placeholder="Bloom Floral">

            <label for="industry">Industry</label>
            <select id="industry"></select>

            <label for="faq-text">FAQs (one per line: Q: ... A: ...)</label>
            <textarea id="faq-text" placeholder="Q: What are your hours? A: We are open 9 to 5."></textarea>

            <div class="actions">
                <button id="train-btn" onclick="train()">Train</button>
            </div>
            <div id="status">Ready.</div>
        </div>

        <div id="panel-chat" class="panel">
            <div id="history"></div>
            <form id="chat-form" onsubmit="ask(event)">
                <input type="text" id="question" placeholder="Ask a question..." autocomplete="off">
                <button type="submit">Send</button>
                <button type="button" id="clear-btn" onclick="clearChat()">Clear</button>
            </form>
        </div>
    </div>

    <script>
        let chatbotId = null;
        let conversationId = null;

        function showTab(name) {
            for (const t of ['train', 'chat']) {
                document.getElementById('tab-' + t).classList.toggle('active', t === name);
                document.getElementById('panel-' + t).classList.toggle('active', t === name);
            }
        }

        function escapeHtml(text) {
            const div = document.createElement('div');
            div.textContent = text;
            return div.innerHTML;
        }

        function setStatus(text, isError) {
            const el = document.getElementById('status');
            el.innerHTML = isError ? '<span class="error">' + escapeHtml(text) + '</span>' : escapeHtml(text);
        }

        function appendStatus(text) {
            const el = document.getElementById('status');
            el.innerHTML += '\n' + escapeHtml(text);
            el.scrollTop = el.scrollHeight;
        }

        async function loadIndustries() {
            try {
                const res = await fetch('/api/industries');
                const industries = await res.json();
                const sel = document.getElementById('industry');
                for (const ind of industries) {
                    const opt = document.createElement('option');
                    opt.value = ind.name;
                    opt.textContent = ind.name + ' (' + ind.pairs + ' samples)';
                    sel.appendChild(opt);
                }
            } catch (err) {
                setStatus('Error: could not load industries', true);
            }
        }

        async function train() {
            const name = document.getElementById('biz-name').value.trim();
            const industry = document.getElementById('industry').value;
            const faqText = document.getElementById('faq-text').value;
            if (!name) { setStatus('Error: business name is required', true); return; }

            const btn = document.getElementById('train-btn');
            btn.disabled = true;
            setStatus('Creating chatbot...');

            try {
                const created = await fetch('/api/chatbots', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({name: name, industry: industry})
                });
                if (!created.ok) throw new Error((await created.json()).error.message);
                const bot = await created.json();
                chatbotId = bot.id;

                await streamTraining(bot.id, faqText);
            } catch (err) {
                setStatus('Error: ' + err.message, true);
            } finally {
                btn.disabled = false;
            }
        }

        async function streamTraining(id, faqText) {
            const res = await fetch('/api/chatbots/' + id + '/train', {
                method: 'POST',
                headers: {'Content-Type': 'application/json', 'Accept': 'text/event-stream'},
                body: JSON.stringify({faq_text: faqText})
            });
            if (!res.ok) throw new Error((await res.json()).error.message);

            // EventSource only speaks GET, so read the POST body as a stream
            // and split the event blocks ourselves.
            const reader = res.body.getReader();
            const decoder = new TextDecoder();
            let buf = '';
            for (;;) {
                const {done, value} = await reader.read();
                if (done) break;
                buf += decoder.decode(value, {stream: true});
                let idx;
                while ((idx = buf.indexOf('\n\n')) >= 0) {
                    handleEvent(buf.slice(0, idx));
                    buf = buf.slice(idx + 2);
                }
            }
        }

        function handleEvent(block) {
            let event = 'message';
            let data = '';
            for (const line of block.split('\n')) {
                if (line.startsWith('event: ')) event = line.slice(7);
                else if (line.startsWith('data: ')) data += line.slice(6);
            }
            if (!data) return;
            const payload = JSON.parse(data);

            if (event === 'training' && payload.step) {
                appendStatus('Step ' + payload.step + '/' + payload.max_steps + '  loss ' + (payload.loss || 0).toFixed(4));
            } else if (event === 'result') {
                setStatus(payload.status);
                openConversation();
            } else if (event === 'error') {
                setStatus(payload.message, true);
            } else if (payload.message) {
                appendStatus(payload.message);
            }
        }

        async function openConversation() {
            if (!chatbotId) return;
            const res = await fetch('/api/chatbots/' + chatbotId + '/conversations', {method: 'POST'});
            if (!res.ok) return;
            const conv = await res.json();
            conversationId = conv.id;
            document.getElementById('history').innerHTML = '';
        }

        function renderTurn(question, answer, guidance) {
            const history = document.getElementById('history');
            const cls = guidance ? 'a guidance' : 'a';
            history.innerHTML += '<div class="turn">' +
                (question ? '<div class="q">' + escapeHtml(question) + '</div>' : '') +
                '<div class="' + cls + '">' + escapeHtml(answer) + '</div></div>';
            history.scrollTop = history.scrollHeight;
        }

        async function ask(e) {
            e.preventDefault();
            const input = document.getElementById('question');
            const question = input.value;
            input.value = '';

            if (!conversationId) {
                renderTurn(question, 'Please train the chatbot first!', true);
                return;
            }

            try {
                const res = await fetch('/api/conversations/' + conversationId + '/messages', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({question: question})
                });
                if (!res.ok) throw new Error((await res.json()).error.message);
                const msg = await res.json();
                renderTurn(question, msg.answer, msg.guidance === true);
            } catch (err) {
                renderTurn(question, err.message, false);
            }
        }

        async function clearChat() {
            document.getElementById('history').innerHTML = '';
            if (chatbotId) await openConversation();
        }

        loadIndustries();
    </script>
</body>
</html>
`
