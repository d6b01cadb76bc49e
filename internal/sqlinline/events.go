package sqlinline

const QNextEventSeq = `--sql 8a836db5-dbc9-4b16-9843-3079fb099d65
select coalesce(max(seq), 0) + 1
from ledger_events
where fundraiser_id = $1::uuid;
`

const QInsertEvent = `--sql 5b1d9f78-3416-462c-9afe-0f5cc6ddd115
insert into ledger_events(id, fundraiser_id, seq, kind, donor, beneficiary, amount, ts, created_at)
values ($1::uuid, $2::uuid, $3::bigint, $4::text, nullif($5::text, ''), nullif($6::text, ''), $7::numeric, $8::bigint, now());
`

const QListEvents = `--sql 716e45ad-470f-4779-8d93-1231b6f45a35
select id, seq, kind, coalesce(donor, ''), coalesce(beneficiary, ''), amount::text, ts
from ledger_events
where fundraiser_id = $1::uuid
order by seq asc
offset $2::int
limit $3::int;
`
