package sqlinline

const QInsertJob = `--sql 072fc101-d6c5-43f5-a62e-1131e0041359
insert into jobs (scope_key, job_type, status, payload)
values ($1, $2, 'queued', $3::jsonb)
returning id, scope_key, job_type, status, payload, created_at, started_at, completed_at, error_message;
`

const QSelectJob = `--sql aeec8b44-2af2-4130-aa3a-7cbb8c7603ab
select id, scope_key, job_type, status, payload, created_at, started_at, completed_at, error_message
from jobs
where id = $1;
`

const QSQLiteInsertJob = `--sql 9d3c5a18-7e2b-4f61-b0c4-2a8e6f1d5b37
insert into jobs (scope_key, job_type, status, payload, created_at)
values (?, ?, 'queued', ?, ?)
returning id, scope_key, job_type, status, payload, created_at, started_at, completed_at, error_message;
`

const QSQLiteSelectJob = `--sql 3e7a9c21-4b8d-4f05-a6e2-7c1b9d4f8e63
select id, scope_key, job_type, status, payload, created_at, started_at, completed_at, error_message
from jobs
where id = ?;
`
