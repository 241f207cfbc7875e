package sqlinline

// QWorkerClaimJob flips the oldest queued job to running. Row locks with
// skip locked keep concurrent workers off the same row; the status predicate
// on the update is the compare-and-set.
const QWorkerClaimJob = `--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db
with next_job as (
    select id
    from jobs
    where status = 'queued'
    order by id asc
    for update skip locked
    limit 1
)
update jobs
set status = 'running', started_at = now()
where id = (select id from next_job) and status = 'queued'
returning id, scope_key, job_type, status, payload, created_at, started_at, completed_at, error_message;
`

const QMarkJobCompleted = `--sql ec187bba-d8c2-481e-89c8-f9db590f7954
update jobs
set status = 'completed', completed_at = now()
where id = $1 and status = 'running';
`

const QMarkJobFailed = `--sql 35b5cb3f-c90d-4892-ade1-b347df111a79
update jobs
set status = 'failed', completed_at = now(), error_message = $2
where id = $1 and status = 'running';
`

const QSQLiteClaimJob = `--sql 7468f8ec-173d-4e3d-a710-90554bf8d043
update jobs
set status = 'running', started_at = ?
where id = (select id from jobs where status = 'queued' order by id asc limit 1)
  and status = 'queued'
returning id, scope_key, job_type, status, payload, created_at, started_at, completed_at, error_message;
`

const QSQLiteMarkJobTerminal = `--sql 0b6e2f7c-51d4-4c8e-9a3f-6e1d2c7b8a90
update jobs
set status = ?, completed_at = ?, error_message = ?
where id = ? and status = 'running';
`
