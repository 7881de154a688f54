package sqlinline

const QCreateGenerationRuns = `--sql 3b8f0c52-6d1e-4a7b-9f24-5c0e8a71d9b3
create table if not exists generation_runs (
  id uuid primary key,
  http_request_id text not null default '',
  job_id text not null default '',
  video_url text not null,
  prompt text not null,
  outcome text not null,
  artifact_url text not null default '',
  error_message text not null default '',
  details jsonb,
  attempts int not null default 0,
  elapsed_ms bigint not null default 0,
  created_at timestamptz not null default now()
);
`

const QInsertGenerationRun = `--sql 9e41a7c3-2f58-4b0d-a6e1-7d3c94b5f802
insert into generation_runs(
  id,
  http_request_id,
  job_id,
  video_url,
  prompt,
  outcome,
  artifact_url,
  error_message,
  details,
  attempts,
  elapsed_ms
) values (
  $1::uuid,
  $2,
  $3,
  $4,
  $5,
  $6,
  $7,
  $8,
  $9::jsonb,
  $10::int,
  $11::bigint
)
returning created_at;
`

const QListRecentGenerationRuns = `--sql c7d2e619-8a3f-4e5b-b0c4-1f6a2d9e7b38
select
  id::text,
  http_request_id,
  job_id,
  video_url,
  prompt,
  outcome,
  artifact_url,
  error_message,
  details,
  attempts,
  elapsed_ms,
  created_at
from generation_runs
order by created_at desc
limit $1::int;
`
