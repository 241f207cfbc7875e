package sqlinline

// QCreateJobsSchema is applied by `jobctl migrate`. It is idempotent.
const QCreateJobsSchema = `--sql 52bca9dd-c386-43b4-9200-cefd3b665add
create table if not exists jobs (
    id            bigserial primary key,
    scope_key     text        not null,
    job_type      text        not null,
    status        text        not null default 'queued'
                  check (status in ('queued', 'running', 'completed', 'failed')),
    payload       jsonb       not null default '{}'::jsonb,
    created_at    timestamptz not null default now(),
    started_at    timestamptz,
    completed_at  timestamptz,
    error_message text,
    check (started_at is not null or status = 'queued'),
    check ((completed_at is not null) = (status in ('completed', 'failed')))
);
create index if not exists jobs_queued_id_idx on jobs (id) where status = 'queued';
create index if not exists jobs_scope_key_idx on jobs (scope_key);
`

// QSQLiteCreateJobsSchema is applied when the sqlite store opens. Timestamps
// are unix nanoseconds.
const QSQLiteCreateJobsSchema = `--sql ec457c81-9f90-4fb4-a145-766f128b543b
create table if not exists jobs (
    id            integer primary key autoincrement,
    scope_key     text    not null,
    job_type      text    not null,
    status        text    not null default 'queued'
                  check (status in ('queued', 'running', 'completed', 'failed')),
    payload       text    not null default '{}',
    created_at    integer not null,
    started_at    integer,
    completed_at  integer,
    error_message text
);
create index if not exists jobs_status_id_idx on jobs (status, id);
`
