package server

const indexHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>Banana Ripeness Check</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: system-ui, sans-serif; max-width: 760px; margin: 24px auto; padding: 0 12px; color: #222; }
        .panel { border: 1px solid #ddd; border-radius: 8px; padding: 12px 16px; margin-bottom: 16px; }
        .stat { display: inline-block; min-width: 140px; margin-right: 12px; }
        .stat-label { color: #777; font-size: 12px; display: block; }
        .stat-value { font-size: 20px; font-weight: 600; }
        button { margin: 4px 6px 4px 0; padding: 6px 12px; }
        #preview { max-width: 320px; display: none; margin-top: 8px; border-radius: 4px; }
        .muted { color: #777; }
    </style>
</head>
<body>
    <h1>🍌 Banana Ripeness Check</h1>

    <div class="panel">
        <h2>Image</h2>
        <input type="file" id="file" accept="image/*">
        <img id="preview" alt="Selected banana">
        <div style="margin-top:12px;">
            <span class="stat"><span class="stat-label">Mean hue</span><span class="stat-value" id="hue">--</span></span>
            <span class="stat"><span class="stat-label">Mean value</span><span class="stat-value" id="value">--</span></span>
            <span class="stat"><span class="stat-label">Heuristic</span><span class="stat-value" id="label">--</span></span>
        </div>
    </div>

    <div class="panel">
        <h2>Teach the model</h2>
        <p class="muted">Label the current image, then train once every class has a few samples.</p>
        <button type="button" data-class="unripe">Unripe</button>
        <button type="button" data-class="ripe">Ripe</button>
        <button type="button" data-class="overripe">Overripe</button>
        <button type="button" id="train">Train</button>
        <p id="trainStatus" class="muted">Collected 0 sample(s).</p>
        <p>Model prediction: <strong id="prediction">--</strong></p>
    </div>

    <div class="panel">
        <h2>Quiz</h2>
        <form id="quiz">
            <div id="questions"></div>
            <button type="submit">Check answers</button>
        </form>
        <p id="quizResult"></p>
    </div>

    <script>
        const $ = (id) => document.getElementById(id);
        let sessionID = null;

        async function ensureSession() {
            if (sessionID) return sessionID;
            const res = await fetch('/api/sessions', { method: 'POST' });
            const body = await res.json();
            if (!res.ok) throw new Error(body.error);
            sessionID = body.id;
            return sessionID;
        }

        window.addEventListener('pagehide', () => {
            if (!sessionID) return;
            fetch('/api/sessions/' + sessionID, { method: 'DELETE', keepalive: true });
            sessionID = null;
        });

        $('file').addEventListener('change', async (e) => {
            const file = e.target.files[0];
            if (!file) return;
            $('preview').src = URL.createObjectURL(file);
            $('preview').style.display = 'block';

            const id = await ensureSession();
            const form = new FormData();
            form.append('image', file);
            const res = await fetch('/api/sessions/' + id + '/image', { method: 'POST', body: form });
            const body = await res.json();
            if (!res.ok) { $('label').textContent = body.error; return; }
            $('hue').textContent = body.hue_text;
            $('value').textContent = body.value_text;
            $('label').textContent = body.label;
            if (body.prediction_text) $('prediction').textContent = body.prediction_text;
        });

        document.querySelectorAll('button[data-class]').forEach((btn) => {
            btn.addEventListener('click', async () => {
                const id = await ensureSession();
                const form = new FormData();
                form.append('class', btn.dataset.class);
                const res = await fetch('/api/sessions/' + id + '/samples', { method: 'POST', body: form });
                const body = await res.json();
                $('trainStatus').textContent = res.ok ? body.status : body.error;
            });
        });

        $('train').addEventListener('click', async () => {
            const id = await ensureSession();
            $('trainStatus').textContent = 'Training…';
            const res = await fetch('/api/sessions/' + id + '/train', { method: 'POST' });
            const body = await res.json();
            $('trainStatus').textContent = body.status || body.error;
            if (res.ok) $('prediction').textContent = body.text;
        });

        fetch('/api/quiz').then((res) => res.json()).then((questions) => {
            for (const q of questions) {
                const div = document.createElement('div');
                const p = document.createElement('p');
                p.textContent = q.prompt;
                div.appendChild(p);
                q.choices.forEach((choice, i) => {
                    const label = document.createElement('label');
                    const input = document.createElement('input');
                    input.type = 'radio';
                    input.name = q.id;
                    input.value = String.fromCharCode(97 + i);
                    label.appendChild(input);
                    label.appendChild(document.createTextNode(' ' + choice));
                    div.appendChild(label);
                    div.appendChild(document.createElement('br'));
                });
                $('questions').appendChild(div);
            }
        });

        $('quiz').addEventListener('submit', async (e) => {
            e.preventDefault();
            const res = await fetch('/api/quiz', { method: 'POST', body: new FormData($('quiz')) });
            const body = await res.json();
            $('quizResult').textContent = body.text || body.error;
        });
    </script>
</body>
</html>
`
